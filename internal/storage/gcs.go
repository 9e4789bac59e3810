package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCS stores objects in a single Google Cloud Storage bucket.
type GCS struct {
	client    *gcs.Client
	bucket    string
	cdnDomain string
}

func NewGCS(ctx context.Context, bucket, cdnDomain string, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("missing GCS bucket name")
	}
	opts = append(opts, option.WithScopes(gcs.ScopeReadWrite))
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, cdnDomain: cdnDomain}, nil
}

func (s *GCS) Close() error {
	return s.client.Close()
}

func (s *GCS) Name() string { return s.bucket }

func (s *GCS) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return gcsError("put", path, err)
	}
	if err := w.Close(); err != nil {
		return gcsError("put", path, err)
	}
	return nil
}

func (s *GCS) PublicURL(path string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, path)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, path)
}

func (s *GCS) Remove(ctx context.Context, paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := s.client.Bucket(s.bucket).Object(p).Delete(ctx); err != nil {
			if errors.Is(err, gcs.ErrObjectNotExist) {
				continue
			}
			errs = append(errs, gcsError("remove", p, err))
		}
	}
	return errors.Join(errs...)
}

func (s *GCS) List(ctx context.Context, prefix string) ([]Object, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	var out []Object
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, gcsError("list", prefix, err)
		}
		out = append(out, Object{Path: attrs.Name, Size: attrs.Size, Created: attrs.Created})
	}
	return out, nil
}

func gcsError(op, path string, err error) error {
	kind := KindOther
	var apiErr *googleapi.Error
	switch {
	case errors.Is(err, gcs.ErrBucketNotExist):
		kind = KindNotFound
	case errors.As(err, &apiErr) && (apiErr.Code == http.StatusForbidden || apiErr.Code == http.StatusUnauthorized):
		kind = KindPermission
	case errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound:
		// A write answered with 404 means the bucket itself is gone.
		kind = KindNotFound
	}
	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}
