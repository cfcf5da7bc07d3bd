// Package draft owns the ordered photo set of one listing being composed.
//
// A Manager is bound to a single form session. Every operation holds the manager
// lock until it completes, so mutations never interleave; only the per-file work
// inside one Intake batch runs in parallel.
package draft

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"sublet-market/pkg/logger"
	"sublet-market/services/listing/internal/entity"
)

type Options struct {
	// DraftKey identifies the draft and its persisted copy.
	DraftKey string
	// Namespace prefixes uploaded object paths: a listing ID or a temporary ID.
	Namespace string
	Limits    Limits
	Store     Store
	Objects   ObjectStore
	Converter Converter
	Previews  PreviewFactory
	Logger    *logger.Logger
}

type Manager struct {
	mu     sync.Mutex
	photos []entity.PhotoEntry
	// rev counts state changes; submission uses it to detect edits made while saving.
	rev uint64

	key       string
	namespace string
	limits    Limits
	store     Store
	objects   ObjectStore
	converter Converter
	previews  PreviewFactory
	logger    *logger.Logger
	now       func() time.Time

	subscribers map[int]func(entity.DraftSnapshot)
	nextSubID   int
}

func NewManager(opts Options) *Manager {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "tmp-" + opts.DraftKey
	}
	log := opts.Logger
	if log == nil {
		log = logger.New()
	}
	return &Manager{
		key:         opts.DraftKey,
		namespace:   namespace,
		limits:      opts.Limits.withDefaults(),
		store:       opts.Store,
		objects:     opts.Objects,
		converter:   opts.Converter,
		previews:    opts.Previews,
		logger:      log,
		now:         time.Now,
		subscribers: make(map[int]func(entity.DraftSnapshot)),
	}
}

func (m *Manager) Key() string {
	return m.key
}

func (m *Manager) Namespace() string {
	return m.namespace
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.photos)
}

// Photos returns a copy of the current entries in order.
func (m *Manager) Photos() []entity.PhotoEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.photos)
}

func (m *Manager) Snapshot() entity.DraftSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers fn for a snapshot after every state change.
// fn runs with the manager locked and must not call back into it.
func (m *Manager) Subscribe(fn func(entity.DraftSnapshot)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// Serialize encodes the durable part of the current set, as written to the store.
func (m *Manager) Serialize() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Encode(m.photos, m.now())
}

// Restore replaces the in-memory set with the persisted copy. A missing or corrupt
// copy yields an empty set. A failing store keeps the current set and is reported
// as *PersistenceError.
func (m *Manager) Restore(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		return nil
	}

	data, err := m.store.Get(ctx, StorageKey(m.key))
	if err != nil {
		m.logger.Warn("Failed to read draft %s: %v", m.key, err)
		return &PersistenceError{Op: "restore", Err: err}
	}

	m.releaseAllLocked()
	m.photos = m.fromPersisted(Decode(data))
	m.rev++
	m.notifyLocked()
	return nil
}

// Seed fills an empty draft with photos already attached to a listing.
func (m *Manager) Seed(ctx context.Context, photos []entity.FinalPhoto) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.photos) > 0 || len(photos) == 0 {
		return nil
	}

	persisted := make([]persistedPhoto, 0, len(photos))
	for _, p := range photos {
		persisted = append(persisted, persistedPhoto{
			StoragePath: p.StoragePath,
			RemoteURL:   p.RemoteURL,
			Order:       p.Order,
			Note:        p.Note,
		})
	}
	m.photos = m.fromPersisted(sanitize(persisted))
	return m.commitLocked(ctx)
}

func (m *Manager) fromPersisted(entries []entity.PhotoEntry) []entity.PhotoEntry {
	if len(entries) > m.limits.MaxPhotos {
		entries = entries[:m.limits.MaxPhotos]
	}
	for i := range entries {
		if m.previews != nil {
			entries[i].Preview = m.previews.Remote(entries[i].RemoteURL)
		}
	}
	return entries
}

func (m *Manager) Remove(ctx context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkIndex(index); err != nil {
		return err
	}

	removed := m.photos[index]
	m.photos = slices.Delete(m.photos, index, index+1)
	release(removed.Preview)
	m.reindexLocked()
	return m.commitLocked(ctx)
}

// SetCover moves the entry at index to the front. Index 0 is a no-op.
func (m *Manager) SetCover(ctx context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkIndex(index); err != nil {
		return err
	}
	if index == 0 {
		return nil
	}
	m.moveLocked(index, 0)
	return m.commitLocked(ctx)
}

// Reorder moves one entry from one position to another; entries in between shift by one.
func (m *Manager) Reorder(ctx context.Context, from, to int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkIndex(from); err != nil {
		return err
	}
	if err := m.checkIndex(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	m.moveLocked(from, to)
	return m.commitLocked(ctx)
}

func (m *Manager) SetNote(ctx context.Context, index int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkIndex(index); err != nil {
		return err
	}
	m.photos[index].Note = text
	return m.commitLocked(ctx)
}

// Finalize returns the durable photo list in cover-first order. It does not clear
// the draft: call Clear once the submission is confirmed.
func (m *Manager) Finalize() []entity.FinalPhoto {
	photos, _ := m.Checkpoint()
	return photos
}

// Checkpoint is Finalize plus the revision the list was taken at, for ClearIfUnchanged.
func (m *Manager) Checkpoint() ([]entity.FinalPhoto, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]entity.FinalPhoto, 0, len(m.photos))
	for _, p := range m.photos {
		out = append(out, entity.FinalPhoto{
			StoragePath: p.StoragePath,
			RemoteURL:   p.RemoteURL,
			Order:       p.Order,
			Note:        p.Note,
		})
	}
	return out, m.rev
}

// Clear empties the draft, releases previews and drops the persisted copy.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearLocked(ctx)
}

// ClearIfUnchanged clears the draft only if nothing changed since the Checkpoint
// that returned rev. It reports whether the draft was cleared.
func (m *Manager) ClearIfUnchanged(ctx context.Context, rev uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rev != rev {
		return false, nil
	}
	return true, m.clearLocked(ctx)
}

// DropSubmitted removes the entries whose storage paths are in submitted and keeps
// the rest in order.
func (m *Manager) DropSubmitted(ctx context.Context, submitted []entity.FinalPhoto) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths := make(map[string]bool, len(submitted))
	for _, p := range submitted {
		paths[p.StoragePath] = true
	}
	kept := m.photos[:0]
	for _, p := range m.photos {
		if paths[p.StoragePath] {
			release(p.Preview)
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == len(m.photos) {
		return nil
	}
	m.photos = kept
	m.reindexLocked()
	return m.commitLocked(ctx)
}

// ReleasePreviews frees local thumbnails and points every entry at its uploaded
// object. Used when the manager is dropped from memory.
func (m *Manager) ReleasePreviews() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, p := range m.photos {
		release(p.Preview)
		m.photos[i].Preview = nil
		if m.previews != nil {
			m.photos[i].Preview = m.previews.Remote(p.RemoteURL)
		}
	}
}

func (m *Manager) clearLocked(ctx context.Context) error {
	m.releaseAllLocked()
	m.rev++

	var err error
	if m.store != nil {
		if rerr := m.store.Remove(ctx, StorageKey(m.key)); rerr != nil {
			m.logger.Warn("Failed to remove persisted draft %s: %v", m.key, rerr)
			err = &PersistenceError{Op: "clear", Err: rerr}
		}
	}
	m.notifyLocked()
	return err
}

func (m *Manager) checkIndex(index int) error {
	if index < 0 || index >= len(m.photos) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(m.photos))
	}
	return nil
}

func (m *Manager) moveLocked(from, to int) {
	entry := m.photos[from]
	m.photos = slices.Delete(m.photos, from, from+1)
	m.photos = slices.Insert(m.photos, to, entry)
	m.reindexLocked()
}

func (m *Manager) reindexLocked() {
	for i := range m.photos {
		m.photos[i].Order = i
	}
}

func (m *Manager) releaseAllLocked() {
	for _, p := range m.photos {
		release(p.Preview)
	}
	m.photos = nil
}

// commitLocked persists and notifies. Persistence faults never undo the mutation.
func (m *Manager) commitLocked(ctx context.Context) error {
	m.rev++
	err := m.persistLocked(ctx)
	m.notifyLocked()
	return err
}

func (m *Manager) persistLocked(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	blob, err := Encode(m.photos, m.now())
	if err != nil {
		m.logger.Warn("Failed to encode draft %s: %v", m.key, err)
		return &PersistenceError{Op: "save", Err: err}
	}
	if err := m.store.Set(ctx, StorageKey(m.key), blob); err != nil {
		m.logger.Warn("Failed to persist draft %s: %v", m.key, err)
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

func (m *Manager) notifyLocked() {
	if len(m.subscribers) == 0 {
		return
	}
	snap := m.snapshotLocked()
	for _, fn := range m.subscribers {
		fn(snap)
	}
}

func (m *Manager) snapshotLocked() entity.DraftSnapshot {
	views := make([]entity.PhotoView, 0, len(m.photos))
	for _, p := range m.photos {
		previewURL := p.RemoteURL
		if p.Preview != nil {
			previewURL = p.Preview.URL()
		}
		views = append(views, entity.PhotoView{
			StoragePath:      p.StoragePath,
			RemoteURL:        p.RemoteURL,
			PreviewURL:       previewURL,
			Order:            p.Order,
			Note:             p.Note,
			IsCover:          p.IsCover(),
			OriginalFileName: p.OriginalFileName,
		})
	}
	return entity.DraftSnapshot{
		DraftKey:  m.key,
		Namespace: m.namespace,
		MaxPhotos: m.limits.MaxPhotos,
		Photos:    views,
	}
}

func release(p entity.Preview) {
	if p != nil {
		p.Release()
	}
}
