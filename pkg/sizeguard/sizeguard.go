// Package sizeguard rejects a batch of files before any upload starts when
// one of them is too large.
package sizeguard

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/docker/go-units"

	"github.com/docker/mdattach/pkg/attachment"
)

// DefaultLimitMiB is the largest file, in mebibytes, accepted for upload.
const DefaultLimitMiB = 50

// Notifier shows the blocking size-limit notice to the user.
type Notifier interface {
	SizeLimitExceeded(limitMiB int, oversized []attachment.FileDescriptor)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(limitMiB int, oversized []attachment.FileDescriptor)

func (f NotifierFunc) SizeLimitExceeded(limitMiB int, oversized []attachment.FileDescriptor) {
	f(limitMiB, oversized)
}

// Guard validates a file set against a size ceiling.
type Guard struct {
	limitMiB int
	notifier Notifier
}

type Opt func(*Guard)

func WithLimitMiB(limit int) Opt {
	return func(g *Guard) {
		if limit > 0 {
			g.limitMiB = limit
		}
	}
}

func WithNotifier(n Notifier) Opt {
	return func(g *Guard) {
		g.notifier = n
	}
}

func New(opts ...Opt) *Guard {
	g := &Guard{limitMiB: DefaultLimitMiB}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LimitMiB returns the configured ceiling.
func (g *Guard) LimitMiB() int {
	return g.limitMiB
}

// Check reports whether files may be uploaded. The whole batch is rejected
// when it is empty or when any single file is over the limit; in the latter
// case the notifier is told which files were too large.
func (g *Guard) Check(files []attachment.FileDescriptor) bool {
	if len(files) == 0 {
		return false
	}

	var oversized []attachment.FileDescriptor
	for _, f := range files {
		if float64(f.SizeBytes)/1024/1024 > float64(g.limitMiB) {
			oversized = append(oversized, f)
		}
	}
	if len(oversized) == 0 {
		return true
	}

	slog.Debug("Rejecting attachment batch over size limit", "limit_mib", g.limitMiB, "oversized", len(oversized), "files", len(files))
	if g.notifier != nil {
		g.notifier.SizeLimitExceeded(g.limitMiB, oversized)
	}
	return false
}

// Notice renders the text of the size-limit notice.
func Notice(limitMiB int, oversized []attachment.FileDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Attachments are limited to %s per file.", units.BytesSize(float64(limitMiB)*1024*1024))
	for _, f := range oversized {
		fmt.Fprintf(&b, "\n  %s (%s)", f.Name, units.BytesSize(float64(f.SizeBytes)))
	}
	return b.String()
}
