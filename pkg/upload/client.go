package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/docker/mdattach/pkg/auth"
)

// HTTPError is a non-2xx answer from the upload server.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upload server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("upload server returned %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the request may succeed.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client uploads files to a remote mdattach server.
type Client struct {
	endpoint   string
	httpClient *http.Client
	auth       auth.Provider
}

type ClientOpt func(*Client)

func WithHTTPClient(c *http.Client) ClientOpt {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithAuth(p auth.Provider) ClientOpt {
	return func(cl *Client) {
		cl.auth = p
	}
}

func NewClient(endpoint string, opts ...ClientOpt) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		auth:       auth.NewNoopProvider(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Upload(ctx context.Context, req Request) (string, error) {
	if req.File.Open == nil {
		return "", fmt.Errorf("%s: %w", req.File.Name, ErrNoContent)
	}

	token, err := c.auth.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving upload token: %w", err)
	}

	body, contentType := c.multipartBody(req)
	defer body.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/attachments", body)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", readHTTPError(resp)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("upload response for %s has no url", req.File.Name)
	}
	return out.URL, nil
}

// multipartBody streams the file through a pipe so large attachments are
// never held in memory.
func (c *Client) multipartBody(req Request) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := func() error {
			if req.Type != "" {
				if err := mw.WriteField("type", req.Type); err != nil {
					return err
				}
			}
			part, err := mw.CreateFormFile("file", req.File.Name)
			if err != nil {
				return err
			}
			src, err := req.File.Open()
			if err != nil {
				return err
			}
			defer src.Close()
			if _, err := io.Copy(part, src); err != nil {
				return err
			}
			return mw.Close()
		}()
		pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType()
}

func readHTTPError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		msg = body.Message
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: msg}
}
