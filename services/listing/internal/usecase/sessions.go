package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"sublet-market/pkg/logger"
	"sublet-market/services/listing/internal/draft"
	"sublet-market/services/listing/internal/entity"
	"sublet-market/services/listing/internal/repo/persistent"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

var (
	ErrForbidden         = errors.New("listing belongs to another user")
	ErrDraftBoundToOther = errors.New("draft is bound to a different listing")
)

// SessionDeps are the collaborators shared by every draft manager.
type SessionDeps struct {
	Store     draft.Store
	Objects   draft.ObjectStore
	Converter draft.Converter
	Previews  draft.PreviewFactory
	Listings  persistent.ListingRepository
	Limits    draft.Limits
	Logger    *logger.Logger
}

// Sessions keeps one live draft manager per (owner, draft key). Evicted managers
// release their local previews and are rebuilt from the persisted copy on next use.
type Sessions struct {
	mu       sync.Mutex
	managers *lru.Cache[string, *draft.Manager]
	// evicted collects managers dropped by the cache while mu is held.
	evicted []*draft.Manager
	loads   singleflight.Group
	deps    SessionDeps
}

func NewSessions(deps SessionDeps, capacity int) (*Sessions, error) {
	s := &Sessions{deps: deps}
	managers, err := lru.NewWithEvict[string, *draft.Manager](capacity, func(_ string, m *draft.Manager) {
		s.evicted = append(s.evicted, m)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	if s.deps.Logger == nil {
		s.deps.Logger = logger.New()
	}
	s.managers = managers
	return s, nil
}

func sessionKey(ownerID, key string) string {
	return ownerID + ":" + key
}

// Open returns the manager of a draft, restoring it from the store on first use.
// A non-empty listingID binds the draft to that listing: uploads are namespaced by
// it and an empty draft is seeded with the listing's stored photos.
// Concurrent first opens of the same draft share one load; other drafts are not blocked.
func (s *Sessions) Open(ctx context.Context, ownerID, key, listingID string) (*draft.Manager, error) {
	id := sessionKey(ownerID, key)
	m, ok := s.cached(id)
	if !ok {
		v, err, _ := s.loads.Do(id+"|"+listingID, func() (interface{}, error) {
			return s.load(ctx, id, ownerID, key, listingID)
		})
		if err != nil {
			return nil, err
		}
		m = v.(*draft.Manager)
	}
	if listingID != "" && m.Namespace() != listingID {
		return nil, ErrDraftBoundToOther
	}
	return m, nil
}

func (s *Sessions) cached(id string) (*draft.Manager, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.managers.Get(id)
}

func (s *Sessions) load(ctx context.Context, id, ownerID, key, listingID string) (*draft.Manager, error) {
	if m, ok := s.cached(id); ok {
		return m, nil
	}

	var listing *entity.Listing
	if listingID != "" {
		if s.deps.Listings == nil {
			return nil, persistent.ErrListingNotFound
		}
		l, err := s.deps.Listings.GetByID(ctx, listingID)
		if err != nil {
			return nil, err
		}
		if l.OwnerID != ownerID {
			return nil, ErrForbidden
		}
		listing = l
	}

	namespace := "tmp-" + key
	if listing != nil {
		namespace = listing.ID
	}
	m := draft.NewManager(draft.Options{
		DraftKey:  id,
		Namespace: namespace,
		Limits:    s.deps.Limits,
		Store:     s.deps.Store,
		Objects:   s.deps.Objects,
		Converter: s.deps.Converter,
		Previews:  s.deps.Previews,
		Logger:    s.deps.Logger,
	})

	if err := m.Restore(ctx); err != nil {
		s.deps.Logger.Warn("Draft %s opened without its persisted copy: %v", id, err)
	}
	if listing != nil && m.Len() == 0 {
		if err := m.Seed(ctx, persistent.ToFinalPhotos(listing.Photos)); err != nil && !draft.IsNonBlocking(err) {
			return nil, err
		}
	}

	s.mu.Lock()
	// A load for the same draft with another listing id may have finished first.
	if existing, ok := s.managers.Get(id); ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.managers.Add(id, m)
	evicted := s.takeEvictedLocked()
	s.mu.Unlock()

	releaseAll(evicted)
	return m, nil
}

// Drop forgets the live manager and releases its previews; the persisted copy is untouched.
func (s *Sessions) Drop(ownerID, key string) {
	s.mu.Lock()
	s.managers.Remove(sessionKey(ownerID, key))
	evicted := s.takeEvictedLocked()
	s.mu.Unlock()

	releaseAll(evicted)
}

func (s *Sessions) Len() int {
	return s.managers.Len()
}

func (s *Sessions) takeEvictedLocked() []*draft.Manager {
	evicted := s.evicted
	s.evicted = nil
	return evicted
}

// releaseAll runs outside mu: a manager in the middle of an upload batch holds its lock.
func releaseAll(managers []*draft.Manager) {
	for _, m := range managers {
		m.ReleasePreviews()
	}
}
