package draft

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"sublet-market/services/listing/internal/entity"
)

// CodecVersion is written into every persisted draft.
const CodecVersion = 1

type persistedDraft struct {
	Version int              `json:"version"`
	SavedAt time.Time        `json:"saved_at"`
	Photos  []persistedPhoto `json:"photos"`
}

type persistedPhoto struct {
	StoragePath string `json:"storage_path"`
	RemoteURL   string `json:"remote_url"`
	Order       int    `json:"order"`
	Note        string `json:"note,omitempty"`
}

// legacyPhoto is the unversioned array format written by the first form release.
type legacyPhoto struct {
	StoragePath string `json:"storagePath"`
	Path        string `json:"path"`
	RemoteURL   string `json:"remoteUrl"`
	URL         string `json:"url"`
	Order       int    `json:"order"`
	Note        string `json:"note"`
}

// StorageKey is the single cache key of a draft.
func StorageKey(draftKey string) string {
	return fmt.Sprintf("draft:%s:photos", draftKey)
}

// Encode serializes the durable fields of photos. Previews and file metadata are dropped.
func Encode(photos []entity.PhotoEntry, savedAt time.Time) ([]byte, error) {
	doc := persistedDraft{
		Version: CodecVersion,
		SavedAt: savedAt.UTC(),
		Photos:  make([]persistedPhoto, 0, len(photos)),
	}
	for _, p := range photos {
		doc.Photos = append(doc.Photos, persistedPhoto{
			StoragePath: p.StoragePath,
			RemoteURL:   p.RemoteURL,
			Order:       p.Order,
			Note:        p.Note,
		})
	}
	return json.Marshal(doc)
}

// Decode never fails: missing, corrupt or unknown-version payloads yield an empty set.
// Entries come back sorted and reindexed to 0..N-1, without previews.
func Decode(data []byte) []entity.PhotoEntry {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	var photos []persistedPhoto
	switch data[0] {
	case '[':
		migrated, ok := migrateLegacy(data)
		if !ok {
			return nil
		}
		photos = migrated
	case '{':
		var doc persistedDraft
		if err := json.Unmarshal(data, &doc); err != nil || doc.Version != CodecVersion {
			return nil
		}
		photos = doc.Photos
	default:
		return nil
	}

	return sanitize(photos)
}

func migrateLegacy(data []byte) ([]persistedPhoto, bool) {
	var legacy []legacyPhoto
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, false
	}
	photos := make([]persistedPhoto, 0, len(legacy))
	for _, l := range legacy {
		p := persistedPhoto{
			StoragePath: l.StoragePath,
			RemoteURL:   l.RemoteURL,
			Order:       l.Order,
			Note:        l.Note,
		}
		if p.StoragePath == "" {
			p.StoragePath = l.Path
		}
		if p.RemoteURL == "" {
			p.RemoteURL = l.URL
		}
		photos = append(photos, p)
	}
	return photos, true
}

func sanitize(photos []persistedPhoto) []entity.PhotoEntry {
	kept := make([]persistedPhoto, 0, len(photos))
	seen := make(map[string]bool, len(photos))
	for _, p := range photos {
		if p.StoragePath == "" || p.RemoteURL == "" || seen[p.StoragePath] {
			continue
		}
		seen[p.StoragePath] = true
		kept = append(kept, p)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Order < kept[j].Order })

	if len(kept) == 0 {
		return nil
	}
	entries := make([]entity.PhotoEntry, len(kept))
	for i, p := range kept {
		entries[i] = entity.PhotoEntry{
			StoragePath: p.StoragePath,
			RemoteURL:   p.RemoteURL,
			Order:       i,
			Note:        p.Note,
		}
	}
	return entries
}
