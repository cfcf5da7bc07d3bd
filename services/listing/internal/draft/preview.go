package draft

import (
	"fmt"
	"strings"
	"sync"

	"sublet-market/pkg/convert"
	"sublet-market/services/listing/internal/entity"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryPreviews keeps in-memory JPEG thumbnails addressable by URL, much like
// browser object URLs. The least recently used thumbnails are evicted past capacity;
// an evicted preview reports its fallback URL instead.
type MemoryPreviews struct {
	basePath string
	blobs    *lru.Cache[string, []byte]
}

func NewMemoryPreviews(basePath string, capacity int) (*MemoryPreviews, error) {
	blobs, err := lru.New[string, []byte](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create preview cache: %w", err)
	}
	return &MemoryPreviews{
		basePath: strings.TrimSuffix(basePath, "/"),
		blobs:    blobs,
	}, nil
}

func (m *MemoryPreviews) FromImage(data []byte, fallbackURL string) (entity.Preview, error) {
	thumb, err := convert.Thumbnail(data)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	m.blobs.Add(id, thumb)
	return &blobPreview{id: id, url: m.basePath + "/" + id, fallback: fallbackURL, registry: m}, nil
}

func (m *MemoryPreviews) Remote(url string) entity.Preview {
	return remotePreview(url)
}

// Get returns the thumbnail registered under id.
func (m *MemoryPreviews) Get(id string) ([]byte, bool) {
	return m.blobs.Get(id)
}

func (m *MemoryPreviews) Len() int {
	return m.blobs.Len()
}

type blobPreview struct {
	id       string
	url      string
	fallback string
	registry *MemoryPreviews
	once     sync.Once
}

func (p *blobPreview) URL() string {
	if p.fallback != "" && !p.registry.blobs.Contains(p.id) {
		return p.fallback
	}
	return p.url
}

func (p *blobPreview) Release() {
	p.once.Do(func() {
		p.registry.blobs.Remove(p.id)
	})
}

// remotePreview renders the uploaded object itself; there is nothing to release.
type remotePreview string

func (p remotePreview) URL() string {
	return string(p)
}

func (p remotePreview) Release() {}
