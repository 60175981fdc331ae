package snippets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
)

const stderrTail = 512

// FFmpeg encodes a sequence of JPEG frames piped over stdin into H.264.
type FFmpeg struct {
	Path string
}

func (f FFmpeg) Encode(ctx context.Context, req Request) error {
	cmd := exec.CommandContext(ctx, f.Path, f.args(req)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open ffmpeg stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	writeErr := writeFrames(stdin, req.Frames)

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(stderr.Bytes()))
	}

	if writeErr != nil {
		return fmt.Errorf("failed to write frames: %w", writeErr)
	}

	return nil
}

func (f FFmpeg) args(req Request) []string {
	return []string{
		"-y",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-r", strconv.Itoa(req.FPS),
		"-i", "pipe:0",
		"-vsync", "vfr",
		"-pix_fmt", "yuv420p",
		"-c:v", "libx264",
		"-crf", strconv.Itoa(req.CRF),
		"-preset", req.Preset,
		req.Output,
	}
}

func writeFrames(w io.WriteCloser, frames [][]byte) error {
	for _, frame := range frames {
		if _, err := w.Write(frame); err != nil {
			w.Close()

			return err
		}
	}

	return w.Close()
}

func tail(b []byte) string {
	if len(b) > stderrTail {
		b = b[len(b)-stderrTail:]
	}

	return string(bytes.TrimSpace(b))
}
