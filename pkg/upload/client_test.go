package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/mdattach/pkg/attachment"
	"github.com/docker/mdattach/pkg/auth"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

var _ auth.Provider = staticToken("")

func TestClient_Upload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/attachments", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		assert.Equal(t, attachment.TypeAttachment, r.FormValue("type"))
		f, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		content, _ := io.ReadAll(f)
		assert.Equal(t, "diagram.svg", header.Filename)
		assert.Equal(t, "<svg/>", string(content))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Response{URL: "https://files.example/diagram.svg"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithAuth(staticToken("secret")))
	url, err := c.Upload(t.Context(), Request{
		File: attachment.FromBytes("diagram.svg", []byte("<svg/>")),
		Type: attachment.TypeAttachment,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/diagram.svg", url)
}

func TestClient_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = w.Write([]byte(`{"message":"file too large"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Upload(t.Context(), Request{File: attachment.FromBytes("big.bin", []byte("x"))})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, httpErr.StatusCode)
	assert.Equal(t, "file too large", httpErr.Message)
	assert.False(t, httpErr.Temporary())
}

func TestClient_MissingURL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Upload(t.Context(), Request{File: attachment.FromBytes("a", []byte("x"))})
	assert.Error(t, err)
}

func fastBackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(time.Millisecond)
}

func TestRetrying_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	flaky := UploaderFunc(func(context.Context, Request) (string, error) {
		if calls.Add(1) < 3 {
			return "", &HTTPError{StatusCode: http.StatusServiceUnavailable}
		}
		return "https://ok", nil
	})

	url, err := NewRetrying(flaky, 5, WithBackOff(fastBackOff)).Upload(t.Context(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "https://ok", url)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetrying_ClientErrorsArePermanent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rejecting := UploaderFunc(func(context.Context, Request) (string, error) {
		calls.Add(1)
		return "", &HTTPError{StatusCode: http.StatusUnauthorized, Message: "bad token"}
	})

	_, err := NewRetrying(rejecting, 5, WithBackOff(fastBackOff)).Upload(t.Context(), Request{})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetrying_GivesUpAfterMaxTries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	broken := UploaderFunc(func(context.Context, Request) (string, error) {
		calls.Add(1)
		return "", errors.New("connection reset")
	})

	_, err := NewRetrying(broken, 2, WithBackOff(fastBackOff)).Upload(t.Context(), Request{})
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
