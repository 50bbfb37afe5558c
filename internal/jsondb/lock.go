package jsondb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

const (
	minLockBackoff = time.Millisecond
	maxLockBackoff = 50 * time.Millisecond
)

// meta is the content of a sidecar lock file.
type meta struct {
	LastID int `json:"last_id,omitempty"`
}

// fileLock is an acquired flock on the sidecar file of one document.
type fileLock struct {
	f         *os.File
	exclusive bool
}

func lockPath(docPath string) string {
	return filepath.Join(filepath.Dir(docPath), "."+filepath.Base(docPath)+".lock")
}

// lockDocument opens the sidecar lock file of docPath and locks it.
//
// When the directory does not exist, a shared lock returns os.ErrNotExist
// since there is nothing to read; an exclusive lock creates the directory.
func lockDocument(ctx context.Context, docPath string, exclusive bool, timeout time.Duration) (*fileLock, error) {
	p := lockPath(docPath)
	if exclusive {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil { //nolint:gosec // G301: data directories are 0o755
			return nil, ioErr("create directory for", docPath, err)
		}
	}
	f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE, 0o644) //nolint:gosec // G304: path is derived from the store root
	if err != nil {
		if !exclusive && errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, ioErr("open lock for", docPath, err)
	}
	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}
	if err := acquire(ctx, f, how, timeout); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrLockTimeout) {
			return nil, fmt.Errorf("%s: %w", docPath, err)
		}
		return nil, ioErr("lock", docPath, err)
	}
	return &fileLock{f: f, exclusive: exclusive}, nil
}

// acquire polls a non-blocking flock with exponential backoff until the lock
// is obtained, the timeout elapses or ctx is done.
func acquire(ctx context.Context, f *os.File, how int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	delay := minLockBackoff
	for {
		err := unix.Flock(int(f.Fd()), how|unix.LOCK_NB) //nolint:gosec // G115: fd fits in int
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			return err
		}
		if !time.Now().Before(deadline) {
			return ErrLockTimeout
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w: %w", ErrLockTimeout, ctx.Err())
		case <-t.C:
		}
		if delay < maxLockBackoff {
			delay *= 2
		}
	}
}

// readMeta returns the sidecar content. A missing or unreadable mark yields
// the zero value; ids then fall back to the documents' own maximum.
func (l *fileLock) readMeta() meta {
	var m meta
	if _, err := l.f.Seek(0, io.SeekStart); err != nil {
		return m
	}
	data, err := io.ReadAll(l.f)
	if err != nil || len(data) == 0 {
		return m
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return meta{}
	}
	return m
}

func (l *fileLock) writeMeta(m meta) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := l.f.Truncate(0); err != nil {
		return err
	}
	if _, err := l.f.WriteAt(data, 0); err != nil {
		return err
	}
	return nil
}

// release unlocks and closes the sidecar file.
func (l *fileLock) release() {
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN) //nolint:gosec // G115: fd fits in int
	_ = l.f.Close()
}
