package jsondb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultLockTimeout is the lock wait used when Store.LockTimeout is zero.
const DefaultLockTimeout = 5 * time.Second

// Store reads and writes JSON documents below a root directory.
//
// A Store is safe for concurrent use. Several Stores, or several processes,
// may share the same root: coordination happens through flock on the
// filesystem, not in memory.
type Store struct {
	root string

	// LockTimeout bounds the wait for a document lock.
	LockTimeout time.Duration
}

// NewStore creates a Store rooted at root, creating the directory if needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil { //nolint:gosec // G301: data directories are 0o755
		return nil, fmt.Errorf("failed to create directory %s: %w", root, err)
	}
	return &Store{root: root, LockTimeout: DefaultLockTimeout}, nil
}

// Root returns the store root directory.
func (s *Store) Root() string {
	return s.root
}

// Abs resolves a document path relative to the root.
func (s *Store) Abs(rel string) (string, error) {
	if rel == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return filepath.Join(s.root, rel), nil
}

func (s *Store) timeout() time.Duration {
	if s.LockTimeout <= 0 {
		return DefaultLockTimeout
	}
	return s.LockTimeout
}

// Read decodes the document at rel into v under a shared lock.
//
// It returns false and leaves v untouched when the document does not exist.
// A document that exists but is not valid JSON returns a *DecodeError.
func (s *Store) Read(ctx context.Context, rel string, v any) (bool, error) {
	found, _, err := s.view(ctx, rel, v)
	return found, err
}

// Write replaces the document at rel with v under an exclusive lock.
func (s *Store) Write(ctx context.Context, rel string, v any) error {
	return s.modify(ctx, rel, nil, func(bool, *meta) (any, error) {
		return v, nil
	})
}

// Update runs a read-modify-write cycle on the document at rel while holding
// the exclusive lock for the whole cycle.
//
// The current content is decoded into v (left untouched when absent), then fn
// is called with whether the document existed. If fn succeeds v is written
// back. If fn returns ErrSkipWrite nothing is written and Update returns nil;
// any other error is returned as is and nothing is written.
func (s *Store) Update(ctx context.Context, rel string, v any, fn func(found bool) error) error {
	return s.modify(ctx, rel, v, func(found bool, _ *meta) (any, error) {
		if err := fn(found); err != nil {
			return nil, err
		}
		return v, nil
	})
}

func (s *Store) view(ctx context.Context, rel string, v any) (bool, meta, error) {
	path, err := s.Abs(rel)
	if err != nil {
		return false, meta{}, err
	}
	l, err := lockDocument(ctx, path, false, s.timeout())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, meta{}, nil
		}
		return false, meta{}, err
	}
	defer l.release()
	found, err := decodeFile(path, v)
	return found, l.readMeta(), err
}

// modify is the single write path. fn receives the decoded state and the
// sidecar meta; it returns the value to persist. When v is nil the current
// document is not decoded.
func (s *Store) modify(ctx context.Context, rel string, v any, fn func(found bool, m *meta) (any, error)) error {
	path, err := s.Abs(rel)
	if err != nil {
		return err
	}
	l, err := lockDocument(ctx, path, true, s.timeout())
	if err != nil {
		return err
	}
	defer l.release()

	found := false
	if v != nil {
		if found, err = decodeFile(path, v); err != nil {
			return err
		}
	}
	m := l.readMeta()
	prev := m
	out, err := fn(found, &m)
	if err != nil {
		if errors.Is(err, ErrSkipWrite) {
			return nil
		}
		return err
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", rel, err)
	}
	data = append(data, '\n')
	if err := WriteFileAtomic(path, data, 0o644); err != nil {
		return err
	}
	if m != prev {
		if err := l.writeMeta(m); err != nil {
			return ioErr("write lock metadata for", path, err)
		}
	}
	return nil
}

func decodeFile(path string, v any) (bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is derived from the store root
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, ioErr("read", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return true, &DecodeError{Path: path, Err: errors.New("empty document")}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, &DecodeError{Path: path, Err: err}
	}
	return true, nil
}

// WriteFileAtomic writes data to a temporary file next to path, syncs it and
// renames it into place with mode perm. A crash leaves either the previous
// file or the new one. Failures are returned as *IOError.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return ioErr("create temporary file for", path, err)
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		return ioErr("write", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return ioErr("sync", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return ioErr("chmod", path, err)
	}
	if err := tmp.Close(); err != nil {
		return ioErr("close", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return ioErr("rename", path, err)
	}
	ok = true
	// Persist the rename itself. Not every filesystem supports syncing a
	// directory, so failures are ignored.
	if d, err := os.Open(dir); err == nil { //nolint:gosec // G304: dir is derived from the store root
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
