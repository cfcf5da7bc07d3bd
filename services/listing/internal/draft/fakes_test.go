package draft

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"sublet-market/services/listing/internal/entity"
)

type fakeObjects struct {
	mu      sync.Mutex
	fail    map[string]error
	uploads []string
	types   map[string]string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{fail: map[string]error{}, types: map[string]string{}}
}

func (f *fakeObjects) Upload(ctx context.Context, path string, data []byte, contentType string) (Uploaded, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[string(data)]; ok {
		return Uploaded{}, err
	}
	f.uploads = append(f.uploads, path)
	f.types[path] = contentType
	return Uploaded{Path: path, PublicURL: "https://cdn.test/" + path}, nil
}

type fakeConverter struct {
	calls atomic.Int32
}

func (c *fakeConverter) Convert(ctx context.Context, data []byte) ([]byte, error) {
	c.calls.Add(1)
	if string(data) == "bad-heic" {
		return nil, errors.New("decoder rejected the image")
	}
	return append([]byte("jpeg:"), data...), nil
}

type countingPreview struct {
	url      string
	released atomic.Int32
}

func (p *countingPreview) URL() string { return p.url }
func (p *countingPreview) Release()    { p.released.Add(1) }

type fakePreviews struct {
	mu      sync.Mutex
	n       int
	created []*countingPreview
}

func (f *fakePreviews) FromImage(data []byte, fallbackURL string) (entity.Preview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	p := &countingPreview{url: fmt.Sprintf("/previews/blob-%d", f.n)}
	f.created = append(f.created, p)
	return p, nil
}

func (f *fakePreviews) Remote(url string) entity.Preview {
	return &countingPreview{url: url}
}

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	sets    int
	setErr  error
	getErr  error
	removed []string
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.data[key], nil
}

func (s *memStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

func (s *memStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, key)
	delete(s.data, key)
	return nil
}
