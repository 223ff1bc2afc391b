// Package run provides simplified functions for inserting attachments into
// markdown documents. It hides the wiring of uploaders, the size guard and
// the insertion controller behind the user configuration.
package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/docker/mdattach/pkg/attachment"
	"github.com/docker/mdattach/pkg/editor"
	"github.com/docker/mdattach/pkg/insert"
)

// Document is a markdown file held in an editor buffer.
type Document struct {
	*editor.Buffer

	Path string
}

// Load reads the document at path. A missing file is an empty document,
// created on the first save.
func Load(path string) (*Document, error) {
	if path == "" {
		return nil, errors.New("document path is required")
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		data = nil
	case err != nil:
		return nil, fmt.Errorf("reading document: %w", err)
	}

	return &Document{Buffer: editor.NewBuffer(string(data)), Path: path}, nil
}

// Save writes the buffer back to Path atomically.
func (d *Document) Save() error {
	return SaveFile(d.Path, d.Value())
}

// SaveFile atomically replaces path with content.
func SaveFile(path, content string) error {
	if err := atomic.WriteFile(path, strings.NewReader(content)); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}

// Files uploads the files at paths and inserts their links into doc at pos,
// or at the end of the document when pos is nil. paths may hold glob
// patterns. The document is saved when the insertion changed it.
func Files(ctx context.Context, c *insert.Controller, doc *Document, pos *editor.Position, paths []string, opts ...insert.InsertOpt) (insert.Result, error) {
	if err := validate(c, doc); err != nil {
		return insert.Result{}, err
	}
	if len(paths) == 0 {
		return insert.Result{}, errors.New("at least one file is required")
	}

	paths, err := ExpandPaths(paths)
	if err != nil {
		return insert.Result{}, err
	}

	files := make([]attachment.FileDescriptor, 0, len(paths))
	for _, path := range paths {
		file, err := attachment.FromPath(path)
		if err != nil {
			return insert.Result{}, err
		}
		files = append(files, file)
	}

	return apply(doc, pos, func(b editor.Bridge) (insert.Result, error) {
		return c.InsertFiles(ctx, b, files, opts...)
	})
}

// Link inserts [name](url) into doc at pos, or at the end of the document
// when pos is nil, and saves it.
func Link(ctx context.Context, c *insert.Controller, doc *Document, pos *editor.Position, name, url string) (insert.Result, error) {
	if err := validate(c, doc); err != nil {
		return insert.Result{}, err
	}
	if url == "" {
		return insert.Result{}, errors.New("url is required")
	}

	return apply(doc, pos, func(b editor.Bridge) (insert.Result, error) {
		return c.InsertLink(ctx, b, name, url)
	})
}

func validate(c *insert.Controller, doc *Document) error {
	if c == nil {
		return errors.New("controller is required")
	}
	if doc == nil {
		return errors.New("document is required")
	}
	return nil
}

func apply(doc *Document, pos *editor.Position, insertFn func(editor.Bridge) (insert.Result, error)) (insert.Result, error) {
	before := doc.Value()
	if pos != nil {
		doc.SetCursor(*pos)
	} else {
		doc.SetCursor(editor.PositionOf(before, len(before)))
	}

	res, err := insertFn(doc.Buffer)
	if err != nil {
		return res, err
	}
	if res.Err != nil {
		slog.Warn("Nothing inserted", "document", doc.Path, "error", res.Err)
	}

	if doc.Value() == before {
		return res, nil
	}
	if err := doc.Save(); err != nil {
		return res, err
	}
	slog.Debug("Document saved", "path", doc.Path, "inserted", res.Inserted)
	return res, nil
}
