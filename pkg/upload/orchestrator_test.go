package upload

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/mdattach/pkg/attachment"
)

func files(names ...string) []attachment.FileDescriptor {
	out := make([]attachment.FileDescriptor, len(names))
	for i, name := range names {
		out[i] = attachment.FromBytes(name, []byte(name))
	}
	return out
}

// delayed answers later for earlier files so completion order is the
// reverse of input order.
func delayed(fail map[string]bool) UploaderFunc {
	return func(ctx context.Context, req Request) (string, error) {
		delay := time.Duration(10-len(req.File.Name)) * 5 * time.Millisecond
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		if fail[req.File.Name] {
			return "", errors.New("storage unavailable")
		}
		return "https://cdn.example/" + req.File.Name, nil
	}
}

func TestOrchestrator_PreservesInputOrder(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(delayed(nil))
	results, err := o.Upload(t.Context(), files("a", "bb", "ccc", "dddd"))
	require.NoError(t, err)

	assert.Equal(t, []attachment.UploadResult{
		{Name: "a", URL: "https://cdn.example/a"},
		{Name: "bb", URL: "https://cdn.example/bb"},
		{Name: "ccc", URL: "https://cdn.example/ccc"},
		{Name: "dddd", URL: "https://cdn.example/dddd"},
	}, results)
}

func TestOrchestrator_BestEffortDropsFailures(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(delayed(map[string]bool{"bb": true}))
	assert.Equal(t, ModeBestEffort, o.Mode())

	results, err := o.Upload(t.Context(), files("a", "bb", "ccc"))
	require.NoError(t, err)
	assert.Equal(t, []attachment.UploadResult{
		{Name: "a", URL: "https://cdn.example/a"},
		{Name: "ccc", URL: "https://cdn.example/ccc"},
	}, results)
}

func TestOrchestrator_BestEffortAllFailed(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(delayed(map[string]bool{"a": true, "b": true}))
	results, err := o.Upload(t.Context(), files("a", "b"))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestOrchestrator_FailFast(t *testing.T) {
	t.Parallel()

	uploader := UploaderFunc(func(ctx context.Context, req Request) (string, error) {
		if req.File.Name == "bad" {
			return "", errors.New("rejected")
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
			return "https://cdn.example/" + req.File.Name, nil
		}
	})

	o := NewOrchestrator(uploader, WithMode(ModeFailFast))
	start := time.Now()
	results, err := o.Upload(t.Context(), files("slow1", "bad", "slow2"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "uploading bad")
	assert.Nil(t, results)
	assert.Less(t, time.Since(start), time.Second, "remaining uploads are cancelled")
}

func TestOrchestrator_ConcurrencyLimit(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	uploader := UploaderFunc(func(ctx context.Context, req Request) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return "u/" + req.File.Name, nil
	})

	o := NewOrchestrator(uploader, WithConcurrency(2))
	results, err := o.Upload(t.Context(), files("a", "b", "c", "d", "e", "f"))
	require.NoError(t, err)
	assert.Len(t, results, 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestOrchestrator_EmptyURLIsFailure(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(UploaderFunc(func(context.Context, Request) (string, error) {
		return "", nil
	}))
	results, err := o.Upload(t.Context(), files("a"))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestOrchestrator_SendsAttachmentType(t *testing.T) {
	t.Parallel()

	var got string
	o := NewOrchestrator(UploaderFunc(func(_ context.Context, req Request) (string, error) {
		got = req.Type
		return "u", nil
	}))
	_, err := o.Upload(t.Context(), files("a"))
	require.NoError(t, err)
	assert.Equal(t, attachment.TypeAttachment, got)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Mode{
		"":            ModeBestEffort,
		"best-effort": ModeBestEffort,
		" Fail-Fast ": ModeFailFast,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("sometimes")
	assert.Error(t, err)
}
