package catalog

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"github.com/docker/mdattach/pkg/sqliteutil"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

func openDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sqliteutil.OpenDB(path)
	if err != nil {
		return nil, err
	}

	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		db.Close()
		return nil, err
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading catalog migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog: %w", err)
	}

	return db, nil
}
