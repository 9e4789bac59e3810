package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local keeps objects under a root directory that the router serves at
// baseURL. The root must exist; a missing root plays the part of a missing
// bucket.
type Local struct {
	root    string
	baseURL string
}

func NewLocal(root, baseURL string) *Local {
	return &Local{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Local) Name() string { return filepath.Base(s.root) }

func (s *Local) Root() string { return s.root }

func (s *Local) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "put", Path: path, Kind: KindOther, Err: err}
	}
	if _, err := os.Stat(s.root); err != nil {
		return localError("put", path, err)
	}
	full, err := s.resolve(path)
	if err != nil {
		return &Error{Op: "put", Path: path, Kind: KindOther, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return localError("put", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return localError("put", path, err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return localError("put", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return localError("put", path, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return localError("put", path, err)
	}
	return nil
}

func (s *Local) PublicURL(path string) string {
	return s.baseURL + "/" + strings.TrimLeft(filepath.ToSlash(path), "/")
}

func (s *Local) Remove(ctx context.Context, paths []string) error {
	var errs []error
	for _, p := range paths {
		full, err := s.resolve(p)
		if err != nil {
			errs = append(errs, &Error{Op: "remove", Path: p, Kind: KindOther, Err: err})
			continue
		}
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, localError("remove", p, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Local) List(ctx context.Context, prefix string) ([]Object, error) {
	var out []Object
	err := filepath.WalkDir(s.root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, full)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, Object{Path: rel, Size: info.Size(), Created: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, localError("list", prefix, err)
	}
	return out, nil
}

func (s *Local) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(path))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("empty object path")
	}
	return filepath.Join(s.root, clean), nil
}

func localError(op, path string, err error) error {
	kind := KindOther
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = KindNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = KindPermission
	}
	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}
