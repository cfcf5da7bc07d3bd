package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"sublet-market/services/listing/internal/draft"
	"sublet-market/services/listing/internal/entity"
	"sublet-market/services/listing/internal/repo/persistent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDraftUseCase_AddAndMutate(t *testing.T) {
	store := newMemStore()
	uc := NewDraftUseCase(newTestSessions(t, nil, store), nil, quietLogger())
	ref := DraftRef{OwnerID: "u1", Key: "new"}
	ctx := context.Background()

	report, snap, err := uc.AddPhotos(ctx, ref, []draft.File{photo("a.png"), photo("b.png"), photo("c.png")})
	require.NoError(t, err)
	assert.Len(t, report.Added, 3)
	require.Len(t, snap.Photos, 3)
	assert.Regexp(t, `^listings/tmp-new/`, snap.Photos[0].StoragePath)

	snap, err = uc.SetCover(ctx, ref, 2)
	require.NoError(t, err)
	assert.Equal(t, report.Added[2].StoragePath, snap.Photos[0].StoragePath)

	snap, err = uc.SetNote(ctx, ref, 1, "desk")
	require.NoError(t, err)
	assert.Equal(t, "desk", snap.Photos[1].Note)

	snap, err = uc.Reorder(ctx, ref, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, report.Added[2].StoragePath, snap.Photos[2].StoragePath)

	snap, err = uc.RemovePhoto(ctx, ref, 0)
	require.NoError(t, err)
	assert.Len(t, snap.Photos, 2)

	_, err = uc.RemovePhoto(ctx, ref, 5)
	assert.True(t, errors.Is(err, draft.ErrIndexOutOfRange))

	assert.NotEmpty(t, store.data[draft.StorageKey("u1:new")])
}

func TestDraftUseCase_DraftsAreScopedByOwner(t *testing.T) {
	uc := NewDraftUseCase(newTestSessions(t, nil, newMemStore()), nil, quietLogger())
	ctx := context.Background()

	_, _, err := uc.AddPhotos(ctx, DraftRef{OwnerID: "u1", Key: "k"}, []draft.File{photo("a.png")})
	require.NoError(t, err)

	snap, err := uc.GetDraft(ctx, DraftRef{OwnerID: "u2", Key: "k"})
	require.NoError(t, err)
	assert.Empty(t, snap.Photos)
}

func TestDraftUseCase_SurvivesSessionEviction(t *testing.T) {
	store := newMemStore()
	sessions := newTestSessions(t, nil, store)
	uc := NewDraftUseCase(sessions, nil, quietLogger())
	ref := DraftRef{OwnerID: "u1", Key: "k"}
	ctx := context.Background()

	_, _, err := uc.AddPhotos(ctx, ref, []draft.File{photo("a.png"), photo("b.png")})
	require.NoError(t, err)
	_, err = uc.SetNote(ctx, ref, 1, "garden")
	require.NoError(t, err)

	sessions.Drop("u1", "k")

	snap, err := uc.GetDraft(ctx, ref)
	require.NoError(t, err)
	require.Len(t, snap.Photos, 2)
	assert.Equal(t, "garden", snap.Photos[1].Note)
	assert.Equal(t, snap.Photos[1].RemoteURL, snap.Photos[1].PreviewURL)
}

func TestDraftUseCase_Reset(t *testing.T) {
	store := newMemStore()
	uc := NewDraftUseCase(newTestSessions(t, nil, store), nil, quietLogger())
	ref := DraftRef{OwnerID: "u1", Key: "k"}
	ctx := context.Background()

	_, _, err := uc.AddPhotos(ctx, ref, []draft.File{photo("a.png")})
	require.NoError(t, err)

	require.NoError(t, uc.Reset(ctx, ref))
	assert.Empty(t, store.data)

	snap, err := uc.GetDraft(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, snap.Photos)
}

func TestDraftUseCase_EditSeedsFromListing(t *testing.T) {
	repo := new(MockListingRepository)
	listing := &entity.Listing{
		ID:      "l-1",
		OwnerID: "u1",
		Photos: []entity.ListingPhoto{
			{StoragePath: "listings/l-1/a.jpg", ImageURL: "https://cdn.test/a.jpg", Order: 0},
			{StoragePath: "listings/l-1/b.jpg", ImageURL: "https://cdn.test/b.jpg", Order: 1},
		},
	}
	repo.On("GetByID", mock.Anything, "l-1").Return(listing, nil).Once()

	uc := NewDraftUseCase(newTestSessions(t, repo, newMemStore()), nil, quietLogger())
	ref := DraftRef{OwnerID: "u1", Key: "edit", ListingID: "l-1"}
	ctx := context.Background()

	snap, err := uc.GetDraft(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "l-1", snap.Namespace)
	require.Len(t, snap.Photos, 2)

	report, _, err := uc.AddPhotos(ctx, ref, []draft.File{photo("c.png")})
	require.NoError(t, err)
	assert.Regexp(t, `^listings/l-1/`, report.Added[0].StoragePath)

	repo.AssertExpectations(t)
}

func TestDraftUseCase_EditForeignListing(t *testing.T) {
	repo := new(MockListingRepository)
	repo.On("GetByID", mock.Anything, "l-1").Return(&entity.Listing{ID: "l-1", OwnerID: "someone"}, nil)
	repo.On("GetByID", mock.Anything, "l-404").Return(nil, persistent.ErrListingNotFound)

	uc := NewDraftUseCase(newTestSessions(t, repo, newMemStore()), nil, quietLogger())

	_, err := uc.GetDraft(context.Background(), DraftRef{OwnerID: "u1", Key: "k", ListingID: "l-1"})
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = uc.GetDraft(context.Background(), DraftRef{OwnerID: "u1", Key: "k", ListingID: "l-404"})
	assert.True(t, errors.Is(err, persistent.ErrListingNotFound))
}

func TestDraftUseCase_Watch(t *testing.T) {
	uc := NewDraftUseCase(newTestSessions(t, nil, newMemStore()), nil, quietLogger())
	ref := DraftRef{OwnerID: "u1", Key: "k"}
	ctx := context.Background()

	snapshots, stop, err := uc.Watch(ctx, ref)
	require.NoError(t, err)
	defer stop()

	first := <-snapshots
	assert.Empty(t, first.Photos)

	_, _, err = uc.AddPhotos(ctx, ref, []draft.File{photo("a.png")})
	require.NoError(t, err)
	_, err = uc.SetNote(ctx, ref, 0, "latest")
	require.NoError(t, err)

	select {
	case s := <-snapshots:
		require.Len(t, s.Photos, 1)
		assert.Equal(t, "latest", s.Photos[0].Note, "only the newest snapshot is kept")
	case <-time.After(time.Second):
		t.Fatal("no snapshot received")
	}
}

type previewMap map[string][]byte

func (p previewMap) Get(id string) ([]byte, bool) {
	b, ok := p[id]
	return b, ok
}

func TestDraftUseCase_Preview(t *testing.T) {
	uc := NewDraftUseCase(newTestSessions(t, nil, newMemStore()), previewMap{"x": []byte("jpeg")}, quietLogger())

	data, ok := uc.Preview("x")
	assert.True(t, ok)
	assert.Equal(t, []byte("jpeg"), data)

	_, ok = uc.Preview("y")
	assert.False(t, ok)
}

func TestOutcomeLabel(t *testing.T) {
	assert.Equal(t, "uploaded", outcomeLabel(draft.FileOutcome{}))
	assert.Equal(t, "rejected", outcomeLabel(draft.FileOutcome{Err: &draft.ValidationError{FileName: "a", Reason: draft.ErrFileTooLarge}}))
	assert.Equal(t, "conversion_failed", outcomeLabel(draft.FileOutcome{Err: &draft.ConversionError{FileName: "a", Err: errors.New("x")}}))
	assert.Equal(t, "upload_failed", outcomeLabel(draft.FileOutcome{Err: &draft.UploadError{FileName: "a", Err: errors.New("x")}}))
}
