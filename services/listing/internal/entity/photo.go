package entity

// Preview is a tab-local rendition of a photo. It is never persisted and must be
// released once the owning entry is removed or superseded.
type Preview interface {
	URL() string
	Release()
}

// PhotoEntry is one uploaded photo of a draft listing. Order 0 is the cover.
type PhotoEntry struct {
	StoragePath      string
	RemoteURL        string
	Order            int
	Note             string
	OriginalFileName string
	ByteSize         int64
	Preview          Preview
}

func (p PhotoEntry) IsCover() bool {
	return p.Order == 0
}

// FinalPhoto is the durable part of a PhotoEntry handed to listing submission.
type FinalPhoto struct {
	StoragePath string `json:"storage_path"`
	RemoteURL   string `json:"remote_url"`
	Order       int    `json:"order"`
	Note        string `json:"note"`
}

type PhotoView struct {
	StoragePath      string `json:"storage_path"`
	RemoteURL        string `json:"remote_url"`
	PreviewURL       string `json:"preview_url"`
	Order            int    `json:"order"`
	Note             string `json:"note"`
	IsCover          bool   `json:"is_cover"`
	OriginalFileName string `json:"original_file_name,omitempty"`
}

// DraftSnapshot is the render-ready projection of a draft photo set.
type DraftSnapshot struct {
	DraftKey  string      `json:"draft_key"`
	Namespace string      `json:"namespace"`
	MaxPhotos int         `json:"max_photos"`
	Photos    []PhotoView `json:"photos"`
}
