package insert

import (
	"errors"
	"log/slog"

	"github.com/docker/mdattach/pkg/attachment"
	"github.com/docker/mdattach/pkg/editor"
)

// Bind subscribes the controller to the drag, drop and paste events of b.
// The previously bound bridge, if any, is fully detached first. Binding the
// bridge that is already bound does nothing.
func (c *Controller) Bind(b editor.Bridge) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bound == b {
		return
	}
	c.detachLocked()
	if b == nil {
		return
	}

	suppress := editor.NewHandler(func(ev *editor.Event) {
		ev.StopPropagation()
		ev.PreventDefault()
	})
	c.handlers = map[editor.EventName]editor.Handler{
		editor.EventDragEnter: suppress,
		editor.EventDragOver:  suppress,
		editor.EventDrop:      editor.NewHandler(func(ev *editor.Event) { c.onDrop(b, ev) }),
		editor.EventPaste:     editor.NewHandler(func(ev *editor.Event) { c.onPaste(b, ev) }),
	}
	for _, name := range editor.EventNames {
		b.On(name, c.handlers[name])
	}
	c.bound = b
}

// Unbind detaches from the bound bridge. In-flight sequences still resolve.
func (c *Controller) Unbind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detachLocked()
}

// Bound returns the bridge the controller listens to, or nil.
func (c *Controller) Bound() editor.Bridge {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bound
}

func (c *Controller) detachLocked() {
	if c.bound == nil {
		return
	}
	for name, h := range c.handlers {
		c.bound.Off(name, h)
	}
	c.bound = nil
	c.handlers = nil
}

// Wait blocks until every sequence started by an editor event has resolved.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) onDrop(b editor.Bridge, ev *editor.Event) {
	switch {
	case len(ev.Files) > 0:
		ev.PreventDefault()
		ev.StopPropagation()
		c.startFiles(b, ev.Files)
	case ev.URL != "":
		ev.PreventDefault()
		ev.StopPropagation()
		if c.droppedURL != nil {
			c.droppedURL(b, ev.URL)
			return
		}
		c.startLink(b, ev.URL)
	}
}

func (c *Controller) onPaste(b editor.Bridge, ev *editor.Event) {
	if len(ev.Files) == 0 {
		return
	}
	ev.PreventDefault()
	ev.StopPropagation()
	c.startFiles(b, ev.Files)
}

// startFiles reserves the placeholder synchronously and uploads in the
// background.
func (c *Controller) startFiles(b editor.Bridge, files []attachment.FileDescriptor) {
	seq, err := c.beginFiles(c.baseCtx, b, files)
	if err != nil {
		logRejected(err, len(files))
		return
	}
	resolve := c.uploadResolver(files)
	c.wg.Go(func() {
		seq.finish(resolve)
	})
}

func (c *Controller) startLink(b editor.Bridge, url string) {
	seq, resolve, err := c.beginLink(c.baseCtx, b, "", url)
	if err != nil {
		logRejected(err, 0)
		return
	}
	c.wg.Go(func() {
		seq.finish(resolve)
	})
}

func logRejected(err error, files int) {
	switch {
	case errors.Is(err, ErrSizeLimit), errors.Is(err, ErrNoFiles):
		slog.Debug("Attachment trigger rejected", "files", files, "error", err)
	default:
		slog.Warn("Attachment trigger rejected", "files", files, "error", err)
	}
}
