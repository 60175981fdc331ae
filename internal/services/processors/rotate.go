package processors

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
)

// Rotate turns the image counterclockwise by a number of degrees. With
// expand the output grows to hold the whole rotated image, otherwise the
// corners are clipped to the original size.
type Rotate struct {
	degrees float64
	expand  bool
}

func NewRotate(cfg models.Rotate) *Rotate {
	return &Rotate{degrees: cfg.Degrees, expand: cfg.Expand}
}

func (r *Rotate) Process(data []byte) ([]byte, error) {
	src, err := decode(data)
	if err != nil {
		return nil, err
	}

	return encode(r.rotate(src))
}

func (r *Rotate) rotate(src image.Image) *image.RGBA {
	sb := src.Bounds()
	w, h := float64(sb.Dx()), float64(sb.Dy())

	sin, cos := math.Sincos(r.degrees * math.Pi / 180)

	dw, dh := w, h
	if r.expand {
		dw = math.Abs(w*cos) + math.Abs(h*sin)
		dh = math.Abs(w*sin) + math.Abs(h*cos)
	}

	dst := image.NewRGBA(image.Rect(0, 0, int(math.Round(dw)), int(math.Round(dh))))

	scx, scy := float64(sb.Min.X)+w/2, float64(sb.Min.Y)+h/2
	dcx, dcy := float64(dst.Bounds().Dx())/2, float64(dst.Bounds().Dy())/2

	// Image y grows downwards, so a visual counterclockwise turn is
	// x' = x cos + y sin, y' = -x sin + y cos around the centres.
	s2d := f64.Aff3{
		cos, sin, dcx - (cos*scx + sin*scy),
		-sin, cos, dcy - (-sin*scx + cos*scy),
	}

	draw.BiLinear.Transform(dst, s2d, src, sb, draw.Over, nil)

	return dst
}
