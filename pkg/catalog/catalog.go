// Package catalog records every attachment the upload server stored.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyID  = errors.New("attachment ID cannot be empty")
	ErrNotFound = errors.New("attachment not found")
)

// Entry is one stored attachment.
type Entry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	StorageKey  string    `json:"key"`
	URL         string    `json:"url"`
	ContentHash string    `json:"hash"`
	SizeBytes   int64     `json:"size"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewEntry returns an entry with a fresh ID and creation time.
func NewEntry(name, key, url, hash string, size int64, typ string) *Entry {
	return &Entry{
		ID:          uuid.New().String(),
		Name:        name,
		StorageKey:  key,
		URL:         url,
		ContentHash: hash,
		SizeBytes:   size,
		Type:        typ,
		CreatedAt:   time.Now().UTC(),
	}
}

// Store defines the interface for the attachment catalog.
type Store interface {
	Add(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	// GetByKey returns the most recent entry stored under key.
	GetByKey(ctx context.Context, key string) (*Entry, error)
	// List returns every entry, newest first.
	List(ctx context.Context) ([]*Entry, error)
	Delete(ctx context.Context, id string) error
}

// BlobRemover deletes stored bytes. *upload.DiskStore implements it.
type BlobRemover interface {
	Remove(key string) error
}

// Forget deletes entry id, and its stored file once no other entry points
// at the same key. A file that cannot be removed is logged, the entry is
// gone either way.
func Forget(ctx context.Context, s Store, blobs BlobRemover, id string) (*Entry, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Delete(ctx, id); err != nil {
		return nil, err
	}

	if _, err := s.GetByKey(ctx, entry.StorageKey); errors.Is(err, ErrNotFound) {
		if err := blobs.Remove(entry.StorageKey); err != nil {
			slog.Warn("Failed to remove attachment file", "key", entry.StorageKey, "error", err)
		}
	}
	return entry, nil
}
