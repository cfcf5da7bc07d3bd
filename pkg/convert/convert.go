package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	previewWidth  = 320
	previewHeight = 320
)

var ErrDecoderUnavailable = errors.New("no HEIC decoder available")

// Runner executes an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// HEICConverter turns HEIC/HEIF bytes into JPEG by shelling out to the
// platform image tool: sips on macOS, ImageMagick elsewhere.
type HEICConverter struct {
	binary string
	goos   string
	run    Runner
}

func NewHEICConverter(binary string) *HEICConverter {
	return &HEICConverter{
		binary: binary,
		goos:   runtime.GOOS,
		run:    execRunner,
	}
}

func (c *HEICConverter) Convert(ctx context.Context, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}

	dir, err := os.MkdirTemp("", "heic-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "source.heic")
	if err := os.WriteFile(src, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write source image: %w", err)
	}

	name, args := c.command(src)
	output, err := c.run(ctx, name, args...)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, fmt.Errorf("%w: %s", ErrDecoderUnavailable, execErr.Name)
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}

	// Re-encode so that only decodable output leaves the converter.
	img, err := imaging.Decode(bytes.NewReader(output), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("converter produced an unreadable image: %w", err)
	}
	return encodeJPEG(img)
}

func (c *HEICConverter) command(src string) (string, []string) {
	if c.binary != "" {
		return c.binary, []string{src, "jpeg:-"}
	}
	switch c.goos {
	case "darwin":
		return "sips", []string{"-s", "format", "jpeg", src, "--out", "/dev/stdout"}
	case "windows":
		return "magick", []string{"convert", src, "jpeg:-"}
	default:
		return "convert", []string{src, "jpeg:-"}
	}
}

// Thumbnail renders a small JPEG used as an in-memory preview.
func Thumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return encodeJPEG(imaging.Fit(img, previewWidth, previewHeight, imaging.Lanczos))
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// IsLegacyFormat reports whether the file needs conversion before it can be previewed.
func IsLegacyFormat(fileName, contentType string) bool {
	switch strings.ToLower(contentType) {
	case "image/heic", "image/heif", "image/heic-sequence", "image/heif-sequence":
		return true
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".heic", ".heif":
		return true
	}
	return false
}
