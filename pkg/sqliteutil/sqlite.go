// Package sqliteutil opens SQLite databases with the pragmas mdattach relies on.
package sqliteutil

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

// OpenDB opens (creating if needed) the database at path. Writes are
// serialized through a single connection.
func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating database directory %q: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?"+pragmas)
	if err != nil {
		return nil, wrapOpenError(path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, wrapOpenError(path, err)
	}

	return db, nil
}

// IsCantOpenError reports whether err is SQLITE_CANTOPEN.
func IsCantOpenError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CANTOPEN
	}
	return false
}

func wrapOpenError(path string, err error) error {
	if !IsCantOpenError(err) {
		return err
	}

	dir := filepath.Dir(path)
	info, statErr := os.Stat(dir)
	switch {
	case os.IsNotExist(statErr):
		return fmt.Errorf("opening database %q: directory %q does not exist", path, dir)
	case statErr != nil:
		return fmt.Errorf("opening database %q: %w", path, statErr)
	case !info.IsDir():
		return fmt.Errorf("opening database %q: %q is not a directory", path, dir)
	default:
		return fmt.Errorf("opening database %q: cannot create file in %q: %w", path, dir, err)
	}
}
