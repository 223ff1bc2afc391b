// Package logging holds the rotating writer behind --log-file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/docker/go-units"
)

const (
	DefaultMaxSize    = 10 * units.MiB
	DefaultMaxBackups = 3
)

// RotatingFile is an io.WriteCloser that moves the current file to path.1
// (shifting older backups up) once a write would exceed the size limit.
type RotatingFile struct {
	path       string
	maxSize    int64
	maxBackups int

	mu   sync.Mutex
	file *os.File
	size int64
}

type Option func(*RotatingFile)

func WithMaxSize(size int64) Option {
	return func(r *RotatingFile) {
		if size > 0 {
			r.maxSize = size
		}
	}
}

// WithMaxSizeString accepts human sizes such as "5MiB" or "512k". Invalid
// values leave the default in place.
func WithMaxSizeString(size string) Option {
	return func(r *RotatingFile) {
		if n, err := units.RAMInBytes(size); err == nil && n > 0 {
			r.maxSize = n
		}
	}
}

func WithMaxBackups(count int) Option {
	return func(r *RotatingFile) {
		r.maxBackups = max(count, 1)
	}
}

func NewRotatingFile(path string, opts ...Option) (*RotatingFile, error) {
	r := &RotatingFile{
		path:       path,
		maxSize:    DefaultMaxSize,
		maxBackups: DefaultMaxBackups,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RotatingFile) open() error {
	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}

	r.file = file
	r.size = info.Size()
	return nil
}

func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size > 0 && r.size+int64(len(p)) > r.maxSize {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *RotatingFile) backup(i int) string {
	return fmt.Sprintf("%s.%d", r.path, i)
}

func (r *RotatingFile) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}

	_ = os.Remove(r.backup(r.maxBackups))
	for i := r.maxBackups - 1; i >= 1; i-- {
		_ = os.Rename(r.backup(i), r.backup(i+1))
	}
	if err := os.Rename(r.path, r.backup(1)); err != nil && !os.IsNotExist(err) {
		return err
	}

	return r.open()
}
