package usecase

import (
	"context"
	"io"
	"sync"

	"sublet-market/pkg/logger"
	"sublet-market/pkg/queue"
	"sublet-market/services/listing/internal/draft"
	"sublet-market/services/listing/internal/entity"
	"sublet-market/services/listing/internal/repo/persistent"

	"github.com/stretchr/testify/mock"
)

type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	args := m.Called(ctx, listing)
	if args.Error(0) == nil && listing.ID == "" {
		listing.ID = "listing-new"
	}
	return args.Error(0)
}

func (m *MockListingRepository) ReplacePhotos(ctx context.Context, listingID string, photos []entity.ListingPhoto) error {
	args := m.Called(ctx, listingID, photos)
	return args.Error(0)
}

func (m *MockListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Listing), args.Error(1)
}

var _ persistent.ListingRepository = (*MockListingRepository)(nil)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishModerationTask(ctx context.Context, task queue.ModerationTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

var _ ModerationPublisher = (*MockPublisher)(nil)

type stubObjects struct{}

func (stubObjects) Upload(ctx context.Context, path string, data []byte, contentType string) (draft.Uploaded, error) {
	return draft.Uploaded{Path: path, PublicURL: "https://cdn.test/" + path}, nil
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *memStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func quietLogger() *logger.Logger {
	return logger.NewWithWriters(io.Discard, io.Discard)
}

func newTestSessions(t interface{ Fatalf(string, ...interface{}) }, repo persistent.ListingRepository, store *memStore) *Sessions {
	sessions, err := NewSessions(SessionDeps{
		Store:    store,
		Objects:  stubObjects{},
		Listings: repo,
		Logger:   quietLogger(),
	}, 16)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	return sessions
}

func photo(name string) draft.File {
	return draft.File{Name: name, ContentType: "image/png", Size: int64(len(name)), Data: []byte(name)}
}
