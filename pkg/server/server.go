// Package server is the HTTP backend attachments are uploaded to.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docker/mdattach/pkg/attachment"
	"github.com/docker/mdattach/pkg/auth"
	"github.com/docker/mdattach/pkg/catalog"
	"github.com/docker/mdattach/pkg/sizeguard"
	"github.com/docker/mdattach/pkg/upload"
)

type Server struct {
	e        *echo.Echo
	store    *upload.DiskStore
	catalog  catalog.Store
	token    auth.Provider
	limitMiB int
	observer upload.Observer
	gatherer prometheus.Gatherer
}

type Opt func(*Server)

// WithToken requires a matching bearer token on every API call except
// downloads and health checks.
func WithToken(p auth.Provider) Opt {
	return func(s *Server) {
		s.token = p
	}
}

func WithLimitMiB(limit int) Opt {
	return func(s *Server) {
		if limit > 0 {
			s.limitMiB = limit
		}
	}
}

func WithObserver(o upload.Observer) Opt {
	return func(s *Server) {
		s.observer = o
	}
}

// WithGatherer sets what /metrics exposes.
func WithGatherer(g prometheus.Gatherer) Opt {
	return func(s *Server) {
		s.gatherer = g
	}
}

func New(store *upload.DiskStore, cat catalog.Store, opts ...Opt) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())

	s := &Server{
		e:        e,
		store:    store,
		catalog:  cat,
		limitMiB: sizeguard.DefaultLimitMiB,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := e.Group("/api")
	api.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	// Links in documents must resolve without credentials.
	api.GET("/attachments/:key", s.download)

	var guarded []echo.MiddlewareFunc
	if s.token != nil {
		guarded = append(guarded, middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			Validator: s.validateToken,
		}))
	}
	// Leave room for the multipart envelope; the per-file check is exact.
	limit := middleware.BodyLimit(fmt.Sprintf("%dM", s.limitMiB+1))
	api.POST("/attachments", s.upload, append(guarded, limit)...)

	catalogAPI := api.Group("/catalog", guarded...)
	catalogAPI.GET("", s.list)
	catalogAPI.DELETE("/:id", s.delete)

	return s
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Serving attachments", "addr", ln.Addr().String(), "dir", s.store.Dir())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Failed to serve", "error", err)
		return err
	}
	return nil
}

func (s *Server) validateToken(key string, c echo.Context) (bool, error) {
	want, err := s.token.Token(c.Request().Context())
	if err != nil {
		slog.Error("Cannot resolve server token", "error", err)
		return false, echo.NewHTTPError(http.StatusInternalServerError, "server token unavailable")
	}
	if want == "" {
		return true, nil
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(want)) == 1, nil
}

func (s *Server) upload(c echo.Context) error {
	start := time.Now()

	header, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file field")
	}
	if _, err := attachment.NormalizeName(header.Filename); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	incoming := []attachment.FileDescriptor{{Name: header.Filename, SizeBytes: header.Size}}
	if !sizeguard.New(sizeguard.WithLimitMiB(s.limitMiB)).Check(incoming) {
		s.record(start, header.Size, errTooLarge)
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, sizeguard.Notice(s.limitMiB, incoming))
	}

	f, err := header.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	defer f.Close()

	ctx := c.Request().Context()
	blob, err := s.store.Put(ctx, header.Filename, f)
	if err != nil {
		s.record(start, header.Size, err)
		slog.Error("Failed to store attachment", "name", header.Filename, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store attachment")
	}

	typ := c.FormValue("type")
	if typ == "" {
		typ = attachment.TypeAttachment
	}
	entry := catalog.NewEntry(header.Filename, blob.Key, s.store.URL(blob.Key), blob.Hash, blob.Size, typ)
	if err := s.catalog.Add(ctx, entry); err != nil {
		s.record(start, header.Size, err)
		slog.Error("Failed to record attachment", "key", blob.Key, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to record attachment")
	}

	s.record(start, blob.Size, nil)
	slog.Debug("Attachment uploaded", "id", entry.ID, "name", entry.Name, "key", entry.StorageKey)
	return c.JSON(http.StatusCreated, upload.Response{
		ID:   entry.ID,
		Key:  entry.StorageKey,
		Name: entry.Name,
		URL:  entry.URL,
		Size: entry.SizeBytes,
	})
}

var errTooLarge = errors.New("attachment too large")

func (s *Server) record(start time.Time, size int64, err error) {
	if s.observer != nil {
		s.observer.RecordUpload(time.Since(start), size, err)
	}
}

func (s *Server) download(c echo.Context) error {
	path, err := s.store.Path(c.Param("key"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	return c.File(path)
}

func (s *Server) list(c echo.Context) error {
	entries, err := s.catalog.List(c.Request().Context())
	if err != nil {
		slog.Error("Failed to list attachments", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list attachments")
	}
	if entries == nil {
		entries = []*catalog.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}

// delete removes a catalog entry, and the stored file once no other entry
// points at it.
func (s *Server) delete(c echo.Context) error {
	_, err := catalog.Forget(c.Request().Context(), s.catalog, s.store, c.Param("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "attachment not found")
	}
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
