package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := openDB(ctx, path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Add(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		return ErrEmptyID
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, name, storage_key, url, content_hash, size_bytes, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, storage_key = excluded.storage_key, url = excluded.url,
			content_hash = excluded.content_hash, size_bytes = excluded.size_bytes, type = excluded.type`,
		entry.ID, entry.Name, entry.StorageKey, entry.URL, entry.ContentHash, entry.SizeBytes, entry.Type,
		createdAt.UTC().Format(timeLayout))
	return err
}

const selectEntry = `SELECT id, name, storage_key, url, content_hash, size_bytes, type, created_at FROM attachments`

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Entry, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	return scanOne(s.db.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id))
}

func (s *SQLiteStore) GetByKey(ctx context.Context, key string) (*Entry, error) {
	return scanOne(s.db.QueryRowContext(ctx, selectEntry+` WHERE storage_key = ? ORDER BY created_at DESC LIMIT 1`, key))
}

func (s *SQLiteStore) List(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntry+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row) (*Entry, error) {
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return entry, err
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		entry     Entry
		createdAt string
	)
	if err := row.Scan(&entry.ID, &entry.Name, &entry.StorageKey, &entry.URL, &entry.ContentHash,
		&entry.SizeBytes, &entry.Type, &createdAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, err
	}
	entry.CreatedAt = t
	return &entry, nil
}
