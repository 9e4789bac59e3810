// Package storage holds the blob store used for gallery images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindPermission Kind = "permission"
	KindOther      Kind = "other"
)

// Error is returned by every Store operation. Backends classify their
// native errors into a Kind at the boundary.
type Error struct {
	Op   string
	Path string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("storage %s (%s): %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("storage %s %s (%s): %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf narrows any error to a storage Kind. Non-storage errors are KindOther.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindOther
}

type Object struct {
	Path    string
	Size    int64
	Created time.Time
}

type Store interface {
	// Name is the container (bucket or directory) name, used in operator messages.
	Name() string
	Put(ctx context.Context, path string, r io.Reader, contentType string) error
	PublicURL(path string) string
	Remove(ctx context.Context, paths []string) error
	List(ctx context.Context, prefix string) ([]Object, error)
}

// PathFromURL returns prefix + the trailing segment of a public object URL.
func PathFromURL(rawURL, prefix string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	return prefix + p
}
