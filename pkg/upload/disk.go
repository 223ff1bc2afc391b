package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/natefinch/atomic"
)

// AttachmentsPath is the URL prefix stored files are served under.
const AttachmentsPath = "/api/attachments/"

var (
	ErrInvalidKey = errors.New("invalid attachment key")
	ErrNoContent  = errors.New("attachment has no content")

	validKey = regexp.MustCompile(`^[0-9a-f]{64}(\.[a-z0-9]{1,10})?$`)
	validExt = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)
)

// Blob describes bytes written to a DiskStore.
type Blob struct {
	Key  string
	Hash string
	Size int64
}

// StoredFunc is called after a DiskStore upload succeeds.
type StoredFunc func(ctx context.Context, req Request, blob Blob, url string)

// DiskStore is a content-addressed Uploader writing into a local directory.
// Identical content maps to the same key, so re-uploading is a no-op.
type DiskStore struct {
	dir      string
	baseURL  string
	onStored StoredFunc
}

type DiskOpt func(*DiskStore)

// WithOnStored registers a hook run after each successful Upload.
func WithOnStored(fn StoredFunc) DiskOpt {
	return func(s *DiskStore) {
		s.onStored = fn
	}
}

func NewDiskStore(dir, baseURL string, opts ...DiskOpt) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating attachment store: %w", err)
	}
	s := &DiskStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) Upload(ctx context.Context, req Request) (string, error) {
	if req.File.Open == nil {
		return "", fmt.Errorf("%s: %w", req.File.Name, ErrNoContent)
	}
	r, err := req.File.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", req.File.Name, err)
	}
	defer r.Close()

	blob, err := s.Put(ctx, req.File.Name, r)
	if err != nil {
		return "", err
	}

	url := s.URL(blob.Key)
	if s.onStored != nil {
		s.onStored(ctx, req, blob, url)
	}
	return url, nil
}

// Put writes r under a key derived from its sha256 and the extension of name.
func (s *DiskStore) Put(ctx context.Context, name string, r io.Reader) (Blob, error) {
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return Blob{}, fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), &ctxReader{ctx: ctx, r: r})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return Blob{}, fmt.Errorf("writing %s: %w", name, err)
	}

	hash := hex.EncodeToString(h.Sum(nil))
	blob := Blob{
		Key:  hash + extension(name),
		Hash: hash,
		Size: size,
	}

	if err := atomic.ReplaceFile(tmpName, filepath.Join(s.dir, blob.Key)); err != nil {
		return Blob{}, fmt.Errorf("storing %s: %w", name, err)
	}

	slog.Debug("Stored attachment", "name", name, "key", blob.Key, "size", size)
	return blob, nil
}

// Path returns the file backing key.
func (s *DiskStore) Path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("%q: %w", key, ErrInvalidKey)
	}
	return filepath.Join(s.dir, key), nil
}

func (s *DiskStore) Open(key string) (*os.File, error) {
	path, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Remove deletes the file backing key. Missing files are not an error.
func (s *DiskStore) Remove(key string) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *DiskStore) URL(key string) string {
	return s.baseURL + AttachmentsPath + key
}

func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if !validExt.MatchString(ext) {
		return ""
	}
	return ext
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
