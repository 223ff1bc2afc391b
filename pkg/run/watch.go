package run

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes made to a document by other programs.
type Watcher struct {
	path     string
	fs       *fsnotify.Watcher
	onChange func(content string)

	mu   sync.Mutex
	last string

	stopOnce sync.Once
	done     chan struct{}
}

// Watch calls onChange with the new content of path whenever it differs
// from content, the last known state, until ctx is done or Close is called.
// The parent directory is watched so atomic replacements are seen.
func Watch(ctx context.Context, path, content string, onChange func(content string)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	w := &Watcher{
		path:     filepath.Clean(path),
		fs:       fsWatcher,
		onChange: onChange,
		last:     content,
		done:     make(chan struct{}),
	}
	go w.loop(ctx)
	return w, nil
}

// Expect records content as written by us, so it is not reported.
func (w *Watcher) Expect(content string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = content
}

func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.fs.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			_ = w.fs.Close()
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Warn("Document watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	data, err := os.ReadFile(w.path)
	if err != nil {
		// Replaced or removed between the event and the read.
		slog.Debug("Failed to read changed document", "path", w.path, "error", err)
		return
	}

	content := string(data)
	w.mu.Lock()
	if content == w.last {
		w.mu.Unlock()
		return
	}
	w.last = content
	w.mu.Unlock()

	slog.Debug("Document changed on disk", "path", w.path)
	w.onChange(content)
}
