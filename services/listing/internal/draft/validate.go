package draft

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

const (
	DefaultMaxPhotos   = 10
	DefaultMaxBytes    = 5 * 1024 * 1024
	defaultParallelism = 4
)

var (
	AllowedContentTypes = map[string]bool{
		"image/jpeg": true,
		"image/jpg":  true,
		"image/png":  true,
		"image/webp": true,
		"image/gif":  true,
		"image/heic": true,
		"image/heif": true,
	}

	AllowedExtensions = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".webp": true,
		".gif":  true,
		".heic": true,
		".heif": true,
	}
)

type Limits struct {
	MaxPhotos   int
	MaxBytes    int64
	Parallelism int
}

func DefaultLimits() Limits {
	return Limits{
		MaxPhotos:   DefaultMaxPhotos,
		MaxBytes:    DefaultMaxBytes,
		Parallelism: defaultParallelism,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxPhotos <= 0 {
		l.MaxPhotos = d.MaxPhotos
	}
	if l.MaxBytes <= 0 {
		l.MaxBytes = d.MaxBytes
	}
	if l.Parallelism <= 0 {
		l.Parallelism = d.Parallelism
	}
	return l
}

func (l Limits) validate(f File) error {
	if !acceptedType(f) {
		return &ValidationError{FileName: f.Name, Reason: ErrUnsupportedType}
	}
	if size := declaredSize(f); size > l.MaxBytes {
		return &ValidationError{
			FileName: f.Name,
			Reason:   fmt.Errorf("%w: %s exceeds the %s limit", ErrFileTooLarge, formatBytes(size), formatBytes(l.MaxBytes)),
		}
	}
	return nil
}

func acceptedType(f File) bool {
	ct := strings.ToLower(strings.TrimSpace(f.ContentType))
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mediaType
	}
	if AllowedContentTypes[ct] {
		return true
	}
	return AllowedExtensions[strings.ToLower(filepath.Ext(f.Name))]
}

func declaredSize(f File) int64 {
	if f.Size > 0 {
		return f.Size
	}
	return int64(len(f.Data))
}

func formatBytes(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%d MB", n/mb)
	}
	return fmt.Sprintf("%.1f MB", float64(n)/mb)
}

// extensionFor picks the object extension, preferring the file name.
func extensionFor(name, contentType string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if AllowedExtensions[ext] {
		if ext == ".jpeg" {
			return ".jpg"
		}
		return ext
	}
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/heic":
		return ".heic"
	case "image/heif":
		return ".heif"
	default:
		return ".jpg"
	}
}

func contentTypeFor(ext, declared string) string {
	if AllowedContentTypes[strings.ToLower(declared)] {
		if strings.ToLower(declared) == "image/jpg" {
			return "image/jpeg"
		}
		return strings.ToLower(declared)
	}
	switch ext {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "image/jpeg"
	}
}
