package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/docker/mdattach/pkg/attachment"
	"github.com/docker/mdattach/pkg/auth"
	"github.com/docker/mdattach/pkg/catalog"
	"github.com/docker/mdattach/pkg/configfile"
	"github.com/docker/mdattach/pkg/insert"
	"github.com/docker/mdattach/pkg/paths"
	"github.com/docker/mdattach/pkg/pubsub"
	"github.com/docker/mdattach/pkg/sizeguard"
	"github.com/docker/mdattach/pkg/telemetry"
	"github.com/docker/mdattach/pkg/upload"
)

// Stack is an insertion controller wired from the configuration, together
// with the resources it owns.
type Stack struct {
	Controller *insert.Controller
	// Progress receives every insertion progress event.
	Progress *pubsub.Broker[insert.Progress]

	closers []func() error
}

type stackOptions struct {
	notifier    sizeguard.Notifier
	catalogPath string
	tracing     *telemetry.Tracing
	insertOpts  []insert.Opt
}

type StackOpt func(*stackOptions)

// WithNotifier receives size-limit notices. By default they are logged.
func WithNotifier(n sizeguard.Notifier) StackOpt {
	return func(o *stackOptions) {
		o.notifier = n
	}
}

// WithCatalogPath overrides where the local backend records attachments.
func WithCatalogPath(path string) StackOpt {
	return func(o *stackOptions) {
		o.catalogPath = path
	}
}

func WithStackTracing(t *telemetry.Tracing) StackOpt {
	return func(o *stackOptions) {
		o.tracing = t
	}
}

// WithControllerOpts passes extra options to the insertion controller.
func WithControllerOpts(opts ...insert.Opt) StackOpt {
	return func(o *stackOptions) {
		o.insertOpts = append(o.insertOpts, opts...)
	}
}

// NewStack builds the insertion pipeline described by cfg. Attachments go to
// cfg.Endpoint when it is set, and to the local store, recorded in the
// catalog, otherwise. ctx bounds the sequences started by editor events.
func NewStack(ctx context.Context, cfg configfile.Config, opts ...StackOpt) (*Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := upload.ParseMode(cfg.UploadMode)
	if err != nil {
		return nil, err
	}

	o := stackOptions{
		notifier:    sizeguard.NotifierFunc(logNotice),
		catalogPath: paths.GetCatalogPath(),
		tracing:     telemetry.Global(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Stack{Progress: pubsub.NewBroker[insert.Progress]()}
	s.closers = append(s.closers, func() error {
		s.Progress.Close()
		return nil
	})

	uploader, err := s.uploader(ctx, cfg, o.catalogPath)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	orchestrator := upload.NewOrchestrator(uploader,
		upload.WithMode(mode),
		upload.WithConcurrency(cfg.Concurrency),
		upload.WithTracing(o.tracing),
	)
	guard := sizeguard.New(
		sizeguard.WithLimitMiB(cfg.MaxSizeMiB),
		sizeguard.WithNotifier(o.notifier),
	)

	controllerOpts := append([]insert.Opt{
		insert.WithPlaceholderLabel(cfg.PlaceholderLabel),
		insert.WithTracing(o.tracing),
		insert.WithPublisher(s.Progress),
		insert.WithBaseContext(ctx),
	}, o.insertOpts...)
	s.Controller = insert.New(orchestrator, guard, controllerOpts...)

	return s, nil
}

func (s *Stack) uploader(ctx context.Context, cfg configfile.Config, catalogPath string) (upload.Uploader, error) {
	if cfg.Endpoint != "" {
		slog.Debug("Uploading attachments to server", "endpoint", cfg.Endpoint)
		client := upload.NewClient(cfg.Endpoint, upload.WithAuth(auth.ProviderFor(cfg.TokenEnv)))
		return upload.NewRetrying(client, cfg.Retries), nil
	}

	cat, err := catalog.NewSQLiteStore(ctx, catalogPath)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	s.closers = append(s.closers, cat.Close)

	dir := cfg.ResolvedStoreDir()
	slog.Debug("Storing attachments locally", "dir", dir, "catalog", catalogPath)
	return upload.NewDiskStore(dir, cfg.BaseURL, upload.WithOnStored(Record(cat)))
}

// Record returns a hook adding every stored file to cat. Failing to record
// does not fail the upload, the link is valid either way.
func Record(cat catalog.Store) upload.StoredFunc {
	return func(ctx context.Context, req upload.Request, blob upload.Blob, url string) {
		entry := catalog.NewEntry(req.File.Name, blob.Key, url, blob.Hash, blob.Size, req.Type)
		if err := cat.Add(ctx, entry); err != nil {
			slog.Warn("Failed to record attachment", "name", req.File.Name, "key", blob.Key, "error", err)
		}
	}
}

// Close waits for in-flight sequences and releases the catalog.
func (s *Stack) Close() error {
	if s.Controller != nil {
		s.Controller.Unbind()
		s.Controller.Wait()
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

func logNotice(limitMiB int, oversized []attachment.FileDescriptor) {
	slog.Warn(sizeguard.Notice(limitMiB, oversized))
}
