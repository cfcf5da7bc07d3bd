package persistent

import (
	"context"

	"sublet-market/pkg/s3"
	"sublet-market/services/listing/internal/draft"
)

// S3ObjectStore uploads draft photos to the listing bucket.
type S3ObjectStore struct {
	client *s3.Client
}

func NewS3ObjectStore(client *s3.Client) *S3ObjectStore {
	return &S3ObjectStore{client: client}
}

func (s *S3ObjectStore) Upload(ctx context.Context, path string, data []byte, contentType string) (draft.Uploaded, error) {
	url, err := s.client.Upload(ctx, path, data, contentType)
	if err != nil {
		return draft.Uploaded{}, err
	}
	return draft.Uploaded{Path: path, PublicURL: url}, nil
}

var _ draft.ObjectStore = (*S3ObjectStore)(nil)
var _ draft.Store = (*RedisDraftStore)(nil)
