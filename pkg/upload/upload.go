// Package upload sends attachment files to a storage backend and turns them
// into URLs.
package upload

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/mdattach/pkg/attachment"
)

// Request is a single file upload.
type Request struct {
	File attachment.FileDescriptor
	// Type tags the upload on the server side, attachment.TypeAttachment for
	// everything the insertion pipeline sends.
	Type string
}

// Uploader stores one file and returns the URL it can be fetched from.
type Uploader interface {
	Upload(ctx context.Context, req Request) (string, error)
}

// UploaderFunc adapts a function to the Uploader interface.
type UploaderFunc func(ctx context.Context, req Request) (string, error)

func (f UploaderFunc) Upload(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Mode decides what a failed upload does to the rest of the batch.
type Mode string

const (
	// ModeBestEffort drops failed files and keeps the others.
	ModeBestEffort Mode = "best-effort"
	// ModeFailFast aborts the whole batch on the first failure.
	ModeFailFast Mode = "fail-fast"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeBestEffort:
		return ModeBestEffort, nil
	case ModeFailFast:
		return ModeFailFast, nil
	default:
		return "", fmt.Errorf("unknown upload mode %q (expected %q or %q)", s, ModeBestEffort, ModeFailFast)
	}
}

// Response is the JSON body returned by the upload server.
type Response struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}
