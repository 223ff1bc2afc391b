package upload

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/docker/mdattach/pkg/attachment"
	"github.com/docker/mdattach/pkg/telemetry"
)

// Orchestrator uploads a batch of files in parallel and keeps their order.
type Orchestrator struct {
	uploader    Uploader
	mode        Mode
	concurrency int
	uploadType  string
	tracing     *telemetry.Tracing
}

type Opt func(*Orchestrator)

func WithMode(mode Mode) Opt {
	return func(o *Orchestrator) {
		if mode != "" {
			o.mode = mode
		}
	}
}

// WithConcurrency caps the number of uploads in flight. Zero or less means
// one goroutine per file.
func WithConcurrency(n int) Opt {
	return func(o *Orchestrator) {
		o.concurrency = n
	}
}

func WithTracing(t *telemetry.Tracing) Opt {
	return func(o *Orchestrator) {
		o.tracing = t
	}
}

func NewOrchestrator(uploader Uploader, opts ...Opt) *Orchestrator {
	o := &Orchestrator{
		uploader:   uploader,
		mode:       ModeBestEffort,
		uploadType: attachment.TypeAttachment,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Mode() Mode {
	return o.mode
}

// Upload sends every file and returns the successful results in input order.
//
// In best-effort mode a failure is logged and the file is left out; the
// error is always nil. In fail-fast mode the first failure cancels the
// remaining uploads and is returned.
func (o *Orchestrator) Upload(ctx context.Context, files []attachment.FileDescriptor) ([]attachment.UploadResult, error) {
	ctx, span := o.tracing.StartSpan(ctx, "upload.batch", trace.WithAttributes(
		attribute.Int("upload.files", len(files)),
		attribute.String("upload.mode", string(o.mode)),
	))
	defer span.End()

	results := make([]attachment.UploadResult, len(files))

	var g *errgroup.Group
	if o.mode == ModeFailFast {
		g, ctx = errgroup.WithContext(ctx)
	} else {
		g = &errgroup.Group{}
	}
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}

	for i, file := range files {
		g.Go(func() error {
			url, err := o.uploadOne(ctx, file)
			if err != nil {
				if o.mode == ModeFailFast {
					return fmt.Errorf("uploading %s: %w", file.Name, err)
				}
				slog.Warn("Upload failed, dropping file from batch", "name", file.Name, "error", err)
				return nil
			}
			results[i] = attachment.UploadResult{Name: file.Name, URL: url}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	ok := results[:0]
	for _, r := range results {
		if r.OK() {
			ok = append(ok, r)
		}
	}
	span.SetAttributes(attribute.Int("upload.succeeded", len(ok)))
	slog.Debug("Upload batch finished", "files", len(files), "succeeded", len(ok))
	return ok, nil
}

func (o *Orchestrator) uploadOne(ctx context.Context, file attachment.FileDescriptor) (string, error) {
	ctx, span := o.tracing.StartSpan(ctx, "upload.file", trace.WithAttributes(
		attribute.String("file.name", file.Name),
		attribute.Int64("file.size", file.SizeBytes),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	url, err := o.uploader.Upload(ctx, Request{File: file, Type: o.uploadType})
	if err == nil && url == "" {
		err = fmt.Errorf("uploader returned an empty URL")
	}
	telemetry.RecordError(span, err)
	return url, err
}
