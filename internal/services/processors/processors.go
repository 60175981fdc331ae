// Package processors holds the post-processing steps applied to every frame
// between fetch and store.
package processors

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	// Cameras may serve PNG snapshots.
	_ "image/png"

	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
)

const jpegQuality = 75

type Processor interface {
	Process(image []byte) ([]byte, error)
}

// Chain applies processors in declaration order.
type Chain []Processor

func (c Chain) Process(img []byte) ([]byte, error) {
	for i, p := range c {
		out, err := p.Process(img)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %w", errs.ErrProcessing, i, err)
		}
		img = out
	}

	return img, nil
}

func Build(cfgs []models.PostProcessor) (Chain, error) {
	const op = "services.processors.Build"

	chain := make(Chain, 0, len(cfgs))

	for i, cfg := range cfgs {
		switch cfg.Kind {
		case models.ProcessorIdentity:
			chain = append(chain, Identity{})
		case models.ProcessorRotate:
			chain = append(chain, NewRotate(*cfg.Rotate))
		case models.ProcessorDateTimeStamp:
			p, err := NewDateTimeStamp(*cfg.DateTimeStamp)
			if err != nil {
				return nil, fmt.Errorf("%s: postprocessor %d: %w", op, i, err)
			}
			chain = append(chain, p)
		default:
			return nil, fmt.Errorf("%s: postprocessor %d: %w: %q", op, i, errs.ErrUnknownProcessor, cfg.Kind)
		}
	}

	return chain, nil
}

type Identity struct{}

func (Identity) Process(img []byte) ([]byte, error) {
	return img, nil
}

func decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return img, nil
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	return buf.Bytes(), nil
}
