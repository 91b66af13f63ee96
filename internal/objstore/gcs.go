package objstore

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS opens gs://bucket/name objects from Cloud Storage.
type GCS struct {
	client *storage.Client
}

// NewGCS creates a Cloud Storage client using application default credentials
// unless opts say otherwise.
func NewGCS(ctx context.Context, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client}, nil
}

// Open implements Opener.
func (g *GCS) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	// storage.ErrObjectNotExist passes through wrapped.
	r, err := g.client.Bucket(loc.Bucket).Object(loc.Name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	return r, nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}
