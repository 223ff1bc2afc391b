package upload

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultRetries is how many attempts Retrying makes when none is configured.
const DefaultRetries = 3

// Retrying retries transient upload failures with exponential backoff.
// Client errors (4xx other than 429) are returned immediately.
type Retrying struct {
	delegate     Uploader
	maxTries     uint
	buildBackoff func() backoff.BackOff
}

type RetryOpt func(*Retrying)

// WithBackOff overrides the backoff policy, mostly for tests.
func WithBackOff(factory func() backoff.BackOff) RetryOpt {
	return func(r *Retrying) {
		r.buildBackoff = factory
	}
}

func NewRetrying(delegate Uploader, maxTries int, opts ...RetryOpt) *Retrying {
	if maxTries <= 0 {
		maxTries = DefaultRetries
	}
	r := &Retrying{
		delegate: delegate,
		maxTries: uint(maxTries),
		buildBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrying) Upload(ctx context.Context, req Request) (string, error) {
	attempt := 0
	return backoff.Retry(ctx, func() (string, error) {
		attempt++
		url, err := r.delegate.Upload(ctx, req)
		if err == nil {
			return url, nil
		}
		if !retryable(err) {
			return "", backoff.Permanent(err)
		}
		slog.Debug("Upload attempt failed", "name", req.File.Name, "attempt", attempt, "error", err)
		return "", err
	}, backoff.WithBackOff(r.buildBackoff()), backoff.WithMaxTries(r.maxTries))
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrNoContent) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}
	return true
}

var _ Uploader = (*Retrying)(nil)
