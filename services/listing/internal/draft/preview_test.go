package draft

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(8, 8, color.White), imaging.JPEG))
	return buf.Bytes()
}

func TestMemoryPreviews_LifeCycle(t *testing.T) {
	previews, err := NewMemoryPreviews("/previews/", 4)
	require.NoError(t, err)

	p, err := previews.FromImage(tinyJPEG(t), "")
	require.NoError(t, err)
	assert.Regexp(t, `^/previews/[0-9a-f-]{36}$`, p.URL())
	assert.Equal(t, 1, previews.Len())

	id := p.URL()[len("/previews/"):]
	thumb, ok := previews.Get(id)
	assert.True(t, ok)
	assert.NotEmpty(t, thumb)

	p.Release()
	p.Release()
	_, ok = previews.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, previews.Len())
}

func TestMemoryPreviews_EvictsOldest(t *testing.T) {
	previews, err := NewMemoryPreviews("/previews", 2)
	require.NoError(t, err)

	first, err := previews.FromImage(tinyJPEG(t), "")
	require.NoError(t, err)
	_, err = previews.FromImage(tinyJPEG(t), "")
	require.NoError(t, err)
	_, err = previews.FromImage(tinyJPEG(t), "")
	require.NoError(t, err)

	_, ok := previews.Get(first.URL()[len("/previews/"):])
	assert.False(t, ok)
	assert.Equal(t, 2, previews.Len())
}

func TestMemoryPreviews_EvictedEntryServesUploadedObject(t *testing.T) {
	previews, err := NewMemoryPreviews("/previews", 2)
	require.NoError(t, err)
	m := NewManager(Options{DraftKey: "d", Objects: newFakeObjects(), Previews: previews})

	files := make([]File, 3)
	for i := range files {
		files[i] = File{Name: fmt.Sprintf("%d.jpg", i), ContentType: "image/jpeg", Size: int64(i + 1), Data: tinyJPEG(t)}
	}
	report := m.Intake(context.Background(), files)
	require.Len(t, report.Added, 3)

	for _, view := range m.Snapshot().Photos {
		if id, ok := strings.CutPrefix(view.PreviewURL, "/previews/"); ok {
			_, served := previews.Get(id)
			assert.True(t, served, "photo %d advertises a missing preview", view.Order)
			continue
		}
		assert.Equal(t, view.RemoteURL, view.PreviewURL)
	}
}

func TestMemoryPreviews_RejectsUndecodable(t *testing.T) {
	previews, err := NewMemoryPreviews("/previews", 2)
	require.NoError(t, err)

	_, err = previews.FromImage([]byte("RIFF....WEBP"), "https://cdn.test/a.webp")
	assert.Error(t, err)
}

func TestRemotePreview(t *testing.T) {
	previews, err := NewMemoryPreviews("/previews", 2)
	require.NoError(t, err)

	p := previews.Remote("https://cdn.test/a.jpg")
	assert.Equal(t, "https://cdn.test/a.jpg", p.URL())
	p.Release()
	assert.Equal(t, 0, previews.Len())
}
