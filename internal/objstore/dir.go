package objstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Dir serves file://bucket/name from Root/bucket/name.
// Names cannot escape Root.
type Dir struct {
	Root string
}

// Open implements Opener.
func (d Dir) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenInRoot(d.Root, filepath.Join(loc.Bucket, filepath.FromSlash(loc.Name)))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	return f, nil
}
