// Command migrate moves an existing folder of attachments into the
// content-addressed store and records each file in the catalog.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/mdattach/pkg/attachment"
	"github.com/docker/mdattach/pkg/catalog"
	"github.com/docker/mdattach/pkg/paths"
	"github.com/docker/mdattach/pkg/upload"
)

func main() {
	srcDir := flag.String("src", "", "Folder of attachments to import")
	storeDir := flag.String("store", paths.GetStoreDir(), "Attachment store directory")
	catalogPath := flag.String("catalog", paths.GetCatalogPath(), "Catalog database path")
	baseURL := flag.String("base-url", "http://localhost:8080", "Base URL of the links recorded in the catalog")
	flag.Parse()

	if *srcDir == "" {
		fmt.Fprintln(os.Stderr, "Usage: migrate -src <folder> [-store <dir>] [-catalog <db>] [-base-url <url>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx := context.Background()

	store, err := upload.NewDiskStore(*storeDir, *baseURL)
	if err != nil {
		log.Fatal(err)
	}
	cat, err := catalog.NewSQLiteStore(ctx, *catalogPath)
	if err != nil {
		log.Fatalf("failed to open catalog: %v", err)
	}
	defer cat.Close()

	if _, err := migrate(ctx, *srcDir, store, cat, os.Stdout, os.Stderr); err != nil {
		cat.Close()
		log.Fatal(err)
	}
}

type counts struct {
	migrated, skipped, failed int
}

func migrate(ctx context.Context, srcDir string, store *upload.DiskStore, cat catalog.Store, stdout, stderr io.Writer) (counts, error) {
	var c counts

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != srcDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		entry, err := importFile(ctx, path, store, cat)
		switch {
		case err != nil:
			fmt.Fprintf(stderr, "  Failed to migrate %s: %v\n", path, err)
			c.failed++
		case entry == nil:
			fmt.Fprintf(stdout, "  Skipped (already stored): %s\n", path)
			c.skipped++
		default:
			fmt.Fprintf(stdout, "  Migrated: %s -> %s\n", path, entry.URL)
			c.migrated++
		}
		return nil
	})
	if err != nil {
		return c, fmt.Errorf("walking %s: %w", srcDir, err)
	}

	fmt.Fprintf(stdout, "\nMigration complete: %d migrated, %d skipped, %d failed\n", c.migrated, c.skipped, c.failed)

	if c.failed > 0 {
		return c, fmt.Errorf("%d files failed to migrate", c.failed)
	}
	return c, nil
}

// importFile stores path and records it. A nil entry means the same bytes
// were already in the catalog.
func importFile(ctx context.Context, path string, store *upload.DiskStore, cat catalog.Store) (*catalog.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := filepath.Base(path)
	blob, err := store.Put(ctx, name, f)
	if err != nil {
		return nil, err
	}

	if _, err := cat.GetByKey(ctx, blob.Key); err == nil {
		return nil, nil
	} else if !errors.Is(err, catalog.ErrNotFound) {
		return nil, err
	}

	entry := catalog.NewEntry(name, blob.Key, store.URL(blob.Key), blob.Hash, blob.Size, attachment.TypeAttachment)
	if err := cat.Add(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
