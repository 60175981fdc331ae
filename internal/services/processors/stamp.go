package processors

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
)

const defaultFontPath = "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"

// DateTimeStamp draws the current wall-clock time onto the frame.
type DateTimeStamp struct {
	format string
	pos    image.Point
	color  color.RGBA
	now    func() time.Time

	// face is not safe for concurrent use.
	mu   sync.Mutex
	face font.Face
}

func NewDateTimeStamp(cfg models.DateTimeStamp) (*DateTimeStamp, error) {
	col, err := ParseHexColor(cfg.Color)
	if err != nil {
		return nil, err
	}

	if len(cfg.Position) != 2 {
		return nil, fmt.Errorf("position must have two coordinates, got %d", len(cfg.Position))
	}

	return &DateTimeStamp{
		format: cfg.Format,
		pos:    image.Pt(cfg.Position[0], cfg.Position[1]),
		color:  col,
		face:   loadFace(cfg.FontPath, cfg.FontSize),
		now:    time.Now,
	}, nil
}

func (s *DateTimeStamp) Process(data []byte) ([]byte, error) {
	src, err := decode(data)
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	s.mu.Lock()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(s.color),
		Face: s.face,
		Dot:  fixed.P(s.pos.X, s.pos.Y).Add(fixed.Point26_6{Y: s.face.Metrics().Ascent}),
	}
	d.DrawString(s.now().Format(s.format))
	s.mu.Unlock()

	return encode(dst)
}

// loadFace prefers the configured TrueType font, then the system default,
// then the built-in bitmap face.
func loadFace(path string, size int) font.Face {
	for _, p := range []string{path, defaultFontPath} {
		if p == "" {
			continue
		}

		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}

		f, err := opentype.Parse(data)
		if err != nil {
			continue
		}

		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    float64(size),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			return face
		}
	}

	return basicfont.Face7x13
}

// ParseHexColor accepts RRGGBB with or without a leading '#'.
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}

	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
