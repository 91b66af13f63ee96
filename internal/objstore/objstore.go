// Package objstore opens source objects addressed as scheme://bucket/name.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnsupportedScheme is returned for URIs no registered opener handles.
var ErrUnsupportedScheme = errors.New("unsupported object scheme")

// Opener opens an object for reading. Callers close the returned reader.
type Opener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Location is a parsed object URI.
type Location struct {
	Scheme string
	Bucket string
	Name   string
}

func (l Location) String() string {
	return l.Scheme + "://" + l.Bucket + "/" + l.Name
}

// ParseURI splits scheme://bucket/name. Object names may contain slashes.
func ParseURI(uri string) (Location, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok || scheme == "" {
		return Location{}, fmt.Errorf("invalid object uri %q: missing scheme", uri)
	}
	bucket, name, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || name == "" {
		return Location{}, fmt.Errorf("invalid object uri %q: want %s://bucket/name", uri, scheme)
	}
	return Location{Scheme: scheme, Bucket: bucket, Name: name}, nil
}

// Router dispatches Open to the opener registered for the URI's scheme.
type Router map[string]Opener

// Open implements Opener.
func (r Router) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	opener, ok := r[loc.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, loc.Scheme)
	}
	return opener.Open(ctx, uri)
}
