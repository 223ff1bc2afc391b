// Package attachment holds the values that flow through the attachment
// insertion pipeline: the files a user picked, what the upload produced and
// the markdown fragments written into the document.
package attachment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// TypeAttachment is the upload type sent for every file inserted by the pipeline.
	TypeAttachment = "attachment"

	// DefaultPlaceholderLabel is shown inside the placeholder while uploads are pending.
	DefaultPlaceholderLabel = "Uploading"

	maxNameLength = 80
)

var (
	ErrEmptyName   = errors.New("attachment name is required")
	ErrIsDirectory = errors.New("attachment path is a directory")
)

var disallowedNameRunes = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileDescriptor describes one file selected by a drop, a paste or the file picker.
// It is consumed once by the upload orchestrator.
type FileDescriptor struct {
	Name      string
	Path      string // Local path when the file comes from disk, empty for in-memory pastes
	SizeBytes int64
	// Open returns the raw file contents.
	Open func() (io.ReadCloser, error)
}

// FromPath builds a descriptor for a file on disk.
func FromPath(path string) (FileDescriptor, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileDescriptor{}, fmt.Errorf("stat attachment: %w", err)
	}
	if info.IsDir() {
		return FileDescriptor{}, fmt.Errorf("%s: %w", path, ErrIsDirectory)
	}

	return FileDescriptor{
		Name:      filepath.Base(path),
		Path:      path,
		SizeBytes: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// FromBytes builds a descriptor for content that only exists in memory,
// like an image read from the clipboard.
func FromBytes(name string, data []byte) FileDescriptor {
	return FileDescriptor{
		Name:      name,
		SizeBytes: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// UploadResult is what the upload of a single file produced.
// An entry without a name or a URL is a failed upload.
type UploadResult struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// OK reports whether the result can be turned into a link.
func (r UploadResult) OK() bool {
	return r.Name != "" && r.URL != ""
}

// FormatLink renders a markdown link.
func FormatLink(name, url string) string {
	return "[" + name + "](" + url + ")"
}

// FormatLinks renders every successful result as a markdown link, one per
// line, keeping the order of results. Failed entries leave no trace.
func FormatLinks(results []UploadResult) string {
	links := make([]string, 0, len(results))
	for _, r := range results {
		if !r.OK() {
			continue
		}
		links = append(links, FormatLink(r.Name, r.URL))
	}
	return strings.Join(links, "\n")
}

// Placeholder returns the text reserving the document position of a pending upload.
func Placeholder(label string) string {
	if label == "" {
		label = DefaultPlaceholderLabel
	}
	return "![" + label + "...]()"
}

// Names returns the names of files, in order.
func Names(files []FileDescriptor) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}

// NormalizeName converts an arbitrary file name into a storage-safe one.
func NormalizeName(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmptyName
	}
	sanitized := disallowedNameRunes.ReplaceAllString(trimmed, "_")
	sanitized = strings.Trim(sanitized, "._-")
	if sanitized == "" {
		return "", fmt.Errorf("attachment name %q is invalid", raw)
	}
	if len(sanitized) > maxNameLength {
		sanitized = sanitized[:maxNameLength]
	}
	return sanitized, nil
}
