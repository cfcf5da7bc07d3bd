package draft

import (
	"context"

	"sublet-market/services/listing/internal/entity"
)

// File is a raw blob selected by the user.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// Uploaded is what the object store reports for a stored photo.
type Uploaded struct {
	Path      string
	PublicURL string
}

type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (Uploaded, error)
}

// Converter turns a legacy device image (HEIC/HEIF) into a broadly renderable one.
type Converter interface {
	Convert(ctx context.Context, data []byte) ([]byte, error)
}

// Store is the durable key-value cache holding the serialized draft.
// Get returns nil, nil when the key is missing.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

type PreviewFactory interface {
	// FromImage builds a local preview from image bytes. fallbackURL is served once
	// the local copy is gone.
	FromImage(data []byte, fallbackURL string) (entity.Preview, error)
	// Remote uses an already public URL as the preview.
	Remote(url string) entity.Preview
}
