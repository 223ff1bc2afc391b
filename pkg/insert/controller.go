// Package insert coordinates the attachment pipeline: it reserves a
// placeholder in the editor, locks it against user input, uploads the files
// and replaces the placeholder with the resulting links.
package insert

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/docker/mdattach/pkg/attachment"
	"github.com/docker/mdattach/pkg/concurrent"
	"github.com/docker/mdattach/pkg/editor"
	"github.com/docker/mdattach/pkg/sizeguard"
	"github.com/docker/mdattach/pkg/telemetry"
)

var (
	ErrNoFiles        = errors.New("no files to attach")
	ErrSizeLimit      = errors.New("attachment exceeds the size limit")
	ErrEmptyURL       = errors.New("link URL is required")
	ErrSequenceActive = errors.New("an attachment is already being inserted in this editor")

	// ErrNothingUploaded is the Result.Err of a best-effort batch where
	// every upload failed.
	ErrNothingUploaded = errors.New("no upload succeeded")
)

// BatchUploader uploads files and returns the successful results in input
// order. *upload.Orchestrator implements it.
type BatchUploader interface {
	Upload(ctx context.Context, files []attachment.FileDescriptor) ([]attachment.UploadResult, error)
}

// Controller runs placeholder sequences against editor bridges.
type Controller struct {
	uploads    BatchUploader
	guard      *sizeguard.Guard
	label      string
	tracing    *telemetry.Tracing
	publisher  Publisher
	baseCtx    context.Context
	droppedURL func(b editor.Bridge, url string)

	// active holds the bridges with a sequence in flight.
	active *concurrent.Map[editor.Bridge, struct{}]

	mu       sync.Mutex
	bound    editor.Bridge
	handlers map[editor.EventName]editor.Handler

	wg sync.WaitGroup
}

type Opt func(*Controller)

func WithPlaceholderLabel(label string) Opt {
	return func(c *Controller) {
		if label != "" {
			c.label = label
		}
	}
}

func WithTracing(t *telemetry.Tracing) Opt {
	return func(c *Controller) {
		c.tracing = t
	}
}

func WithPublisher(p Publisher) Opt {
	return func(c *Controller) {
		c.publisher = p
	}
}

// WithBaseContext sets the context event-triggered sequences run under.
func WithBaseContext(ctx context.Context) Opt {
	return func(c *Controller) {
		c.baseCtx = ctx
	}
}

// WithDroppedURL routes URLs dropped on a bound editor to fn, typically a
// link Dialog. Without it they are inserted directly.
func WithDroppedURL(fn func(b editor.Bridge, url string)) Opt {
	return func(c *Controller) {
		c.droppedURL = fn
	}
}

func New(uploads BatchUploader, guard *sizeguard.Guard, opts ...Opt) *Controller {
	if guard == nil {
		guard = sizeguard.New()
	}
	c := &Controller{
		uploads: uploads,
		guard:   guard,
		label:   attachment.DefaultPlaceholderLabel,
		baseCtx: context.Background(),
		active:  concurrent.NewMap[editor.Bridge, struct{}](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Placeholder returns the text reserved while an upload is pending.
func (c *Controller) Placeholder() string {
	return attachment.Placeholder(c.label)
}

// Active reports whether a sequence is running on b.
func (c *Controller) Active(b editor.Bridge) bool {
	_, ok := c.active.Load(b)
	return ok
}

type insertOptions struct {
	label string
}

type InsertOpt func(*insertOptions)

// WithLabel names the link of a single uploaded file. It is ignored when
// several files are inserted at once.
func WithLabel(label string) InsertOpt {
	return func(o *insertOptions) {
		o.label = label
	}
}

// InsertFiles uploads files and splices their links at the cursor of b.
// It blocks until the sequence resolves. Validation failures return an
// error before the document is touched; upload failures are reported in
// Result.Err after the placeholder has been cleared.
func (c *Controller) InsertFiles(ctx context.Context, b editor.Bridge, files []attachment.FileDescriptor, opts ...InsertOpt) (Result, error) {
	seq, err := c.beginFiles(ctx, b, files)
	if err != nil {
		return Result{}, err
	}
	return seq.finish(c.uploadResolver(files, opts...)), nil
}

// InsertLink splices [name](url) at the cursor of b through the same
// placeholder sequence, without uploading anything. An empty name falls
// back to the last path segment of url, then to url itself.
func (c *Controller) InsertLink(ctx context.Context, b editor.Bridge, name, url string) (Result, error) {
	seq, resolve, err := c.beginLink(ctx, b, name, url)
	if err != nil {
		return Result{}, err
	}
	return seq.finish(resolve), nil
}

func (c *Controller) beginLink(ctx context.Context, b editor.Bridge, name, url string) (*sequence, func(context.Context) (string, error), error) {
	if url == "" {
		return nil, nil, ErrEmptyURL
	}
	if name == "" {
		name = DefaultLinkName(url)
	}
	if name == "" {
		name = url
	}

	seq, err := c.begin(ctx, b, "link", nil)
	if err != nil {
		return nil, nil, err
	}
	return seq, func(context.Context) (string, error) {
		return attachment.FormatLink(name, url), nil
	}, nil
}

func (c *Controller) beginFiles(ctx context.Context, b editor.Bridge, files []attachment.FileDescriptor) (*sequence, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	// Rejected before the size check, so a busy editor shows no notice.
	if c.Active(b) {
		return nil, ErrSequenceActive
	}
	if !c.guard.Check(files) {
		return nil, ErrSizeLimit
	}
	return c.begin(ctx, b, "files", attachment.Names(files))
}

func (c *Controller) uploadResolver(files []attachment.FileDescriptor, opts ...InsertOpt) func(context.Context) (string, error) {
	var o insertOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(ctx context.Context) (string, error) {
		results, err := c.uploads.Upload(ctx, files)
		if err != nil {
			return "", err
		}
		if len(results) == 0 {
			return "", ErrNothingUploaded
		}
		if o.label != "" && len(files) == 1 && len(results) == 1 {
			results[0].Name = o.label
		}
		return attachment.FormatLinks(results), nil
	}
}

// sequence is one placeholder reservation on one bridge. Once begin
// returns it, finish must run exactly once.
type sequence struct {
	c     *Controller
	b     editor.Bridge
	ctx   context.Context
	trace trace.Span
	span  editor.Span
	files []string
}

// begin reserves the placeholder and locks b. It runs synchronously in the
// caller so no user input can land between the trigger and the lock.
func (c *Controller) begin(ctx context.Context, b editor.Bridge, kind string, files []string) (*sequence, error) {
	if _, loaded := c.active.LoadOrStore(b, struct{}{}); loaded {
		slog.Debug("Rejecting attachment trigger, sequence already active", "kind", kind)
		return nil, ErrSequenceActive
	}

	ctx, span := c.tracing.StartSpan(ctx, "insert."+kind, trace.WithAttributes(
		attribute.Int("insert.files", len(files)),
	))

	placeholder := c.Placeholder()
	seq := &sequence{
		c:     c,
		b:     b,
		ctx:   ctx,
		trace: span,
		span:  editor.NewSpan(b.GetCursor(), placeholder),
		files: files,
	}

	b.ReplaceSelection(placeholder)
	b.SetReadOnly(true)

	slog.Debug("Placeholder inserted", "kind", kind, "start", seq.span.Start, "end", seq.span.End)
	seq.publish(StatePlaceholderInserted, "")
	return seq, nil
}

func (s *sequence) publish(state State, inserted string) {
	if s.c.publisher == nil {
		return
	}
	s.c.publisher.Publish(ProgressTopic, Progress{
		Editor:   s.b,
		State:    state,
		Span:     s.span,
		Files:    s.files,
		Inserted: inserted,
	})
}

// finish resolves the placeholder with whatever resolve produces, then
// unlocks and refocuses the editor whatever happened.
func (s *sequence) finish(resolve func(context.Context) (string, error)) (res Result) {
	res.Span = s.span
	resolved := false

	defer func() {
		if !resolved {
			s.b.ReplaceRange("", s.span.Start, s.span.End)
		}
		s.b.SetReadOnly(false)
		s.b.Focus()
		s.c.active.Delete(s.b)
		s.trace.End()
		s.publish(StateIdle, res.Inserted)
	}()

	s.publish(StateUploading, "")

	text, err := resolve(s.ctx)
	if err != nil {
		slog.Warn("Attachment upload failed, clearing placeholder", "files", s.files, "error", err)
		telemetry.RecordError(s.trace, err)
		text = ""
	}

	s.b.ReplaceRange(text, s.span.Start, s.span.End)
	resolved = true

	res.Inserted = text
	res.Err = err
	res.State = StateResolvedSuccess
	if text == "" {
		res.State = StateResolvedEmpty
	}
	s.trace.SetAttributes(attribute.String("insert.state", res.State.String()))
	s.publish(res.State, text)
	return res
}
