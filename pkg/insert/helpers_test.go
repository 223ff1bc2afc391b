package insert

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/docker/go-units"

	"github.com/docker/mdattach/pkg/attachment"
	"github.com/docker/mdattach/pkg/editor"
	"github.com/docker/mdattach/pkg/upload"
)

// recordingBridge is a Buffer that remembers every SetReadOnly call.
type recordingBridge struct {
	*editor.Buffer

	mu       sync.Mutex
	readOnly []bool
}

func newRecordingBridge(text string) *recordingBridge {
	return &recordingBridge{Buffer: editor.NewBuffer(text)}
}

func (r *recordingBridge) SetReadOnly(readOnly bool) {
	r.mu.Lock()
	r.readOnly = append(r.readOnly, readOnly)
	r.mu.Unlock()
	r.Buffer.SetReadOnly(readOnly)
}

func (r *recordingBridge) readOnlyCalls() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.readOnly...)
}

func file(name string, sizeMB int64) attachment.FileDescriptor {
	return attachment.FileDescriptor{
		Name:      name,
		SizeBytes: sizeMB * units.MB,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(name)), nil
		},
	}
}

var errUnavailable = errors.New("storage unavailable")

// urls maps file names to the URL their upload returns. Missing names fail.
func urls(m map[string]string) *upload.Orchestrator {
	return upload.NewOrchestrator(upload.UploaderFunc(func(_ context.Context, req upload.Request) (string, error) {
		if u, ok := m[req.File.Name]; ok {
			return u, nil
		}
		return "", errUnavailable
	}))
}

type batchFunc func(ctx context.Context, files []attachment.FileDescriptor) ([]attachment.UploadResult, error)

func (f batchFunc) Upload(ctx context.Context, files []attachment.FileDescriptor) ([]attachment.UploadResult, error) {
	return f(ctx, files)
}
