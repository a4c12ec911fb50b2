// Package fsstore persists node results as one JSON file per node under a
// local directory.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/result"
	"github.com/specialistvlad/conduit/internal/resultstore"
)

// Store writes results under dir. Labels containing slashes, such as the
// ones produced by resultstore.WithPrefix, become subdirectories.
type Store struct {
	dir   string
	owned bool
}

var _ resultstore.Store = (*Store)(nil)

// New uses dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create result directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// NewTemp creates a fresh temporary directory that is removed by Close.
func NewTemp(pattern string) (*Store, error) {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("create temporary result directory: %w", err)
	}
	return &Store{dir: dir, owned: true}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Close removes the directory if the store created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return os.RemoveAll(s.dir)
}

// Put writes the result to a temporary file and renames it into place, so a
// reader never sees a partial record.
func (s *Store) Put(ctx context.Context, label string, res result.Result) error {
	if err := ctx.Err(); err != nil {
		return resultstore.Wrap("put", label, err)
	}
	data, err := resultstore.EncodeRecord(label, res)
	if err != nil {
		return resultstore.Wrap("put", label, err)
	}

	path := s.path(label)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return resultstore.Wrap("put", label, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return resultstore.Wrap("put", label, err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmp.Name())
		return resultstore.Wrap("put", label, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return resultstore.Wrap("put", label, err)
	}

	ctxlog.FromContext(ctx).Debug("Result written.", "label", label, "path", path, "bytes", len(data))
	return nil
}

// Get reads the result back.
func (s *Store) Get(ctx context.Context, label string) (result.Result, error) {
	data, err := os.ReadFile(s.path(label))
	if errors.Is(err, fs.ErrNotExist) {
		return result.Null(), resultstore.Wrap("get", label, resultstore.ErrNotFound)
	}
	if err != nil {
		return result.Null(), resultstore.Wrap("get", label, err)
	}
	rec, err := resultstore.DecodeRecord(data)
	if err != nil {
		return result.Null(), resultstore.Wrap("get", label, err)
	}
	return rec.Result, nil
}

// path maps a label to a file below dir. Every segment is escaped, so a label
// can never point outside the directory.
func (s *Store) path(label string) string {
	segments := strings.Split(label, "/")
	for i, seg := range segments {
		switch seg {
		case "", ".", "..":
			seg = strings.ReplaceAll(seg, ".", "%2E")
			if seg == "" {
				seg = "%00"
			}
		default:
			seg = url.PathEscape(seg)
		}
		segments[i] = seg
	}
	segments[len(segments)-1] += ".json"
	return filepath.Join(append([]string{s.dir}, segments...)...)
}
