package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pagereach/console/internal/config"
)

const requestIDHeader = "X-Request-ID"

// Doer executes HTTP requests. *http.Client satisfies it; tests inject
// fakes.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CredentialSource is the slice of credential storage the client needs:
// the current bearer token (empty when signed out) and the ability to
// wipe it when the backend rejects it.
type CredentialSource interface {
	Token() string
	Clear() error
}

// Client is the PageReach backend API client. All console traffic goes
// through it. It performs no retries; errors propagate to the caller so
// each flow decides how to react.
type Client struct {
	baseURL    string
	creds      CredentialSource
	httpClient Doer
	log        *zap.Logger

	// Fired after a request that carried a bearer token comes back 401.
	// The stored credential is already cleared by then. Wired by the
	// console to end the command; a web frontend would navigate to "/".
	onSessionInvalidated func()
}

// NewClient creates a backend API client.
func NewClient(cfg config.APIConfig, creds CredentialSource, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		creds:   creds,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		log: log,
	}
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(d Doer) {
	c.httpClient = d
}

// OnSessionInvalidated registers the global 401 callback. Must be set
// before the client is shared between goroutines.
func (c *Client) OnSessionInvalidated(fn func()) {
	c.onSessionInvalidated = fn
}

// BaseURL returns the configured API base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest makes an HTTP request to the backend API. A non-nil body is
// JSON-encoded. The returned bytes are the raw response body of a 2xx
// response; anything else comes back as a typed error.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req)
}

// doMultipart posts a multipart form with one file part plus string
// fields. Used only by campaign start.
func (c *Client) doMultipart(ctx context.Context, path string, fields map[string]string, fileField, filename string, file io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("writing form field %s: %w", key, err)
		}
	}
	part, err := w.CreateFormFile(fileField, filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copying file into form: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.send(req)
}

func (c *Client) send(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	token := ""
	if c.creds != nil {
		token = c.creds.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			// Caller-initiated cancellation is not a backend failure.
			return nil, ctxErr
		}
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		c.invalidateSession(req)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Debug("backend request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("request_id", req.Header.Get(requestIDHeader)),
		)
		return nil, parseErrorBody(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// invalidateSession is the one global, non-recoverable auth path: the
// stored token was rejected, so it is cleared immediately and the
// registered callback runs before the 401 propagates to the caller.
func (c *Client) invalidateSession(req *http.Request) {
	c.log.Warn("stored token rejected, clearing session",
		zap.String("path", req.URL.Path),
		zap.String("request_id", req.Header.Get(requestIDHeader)),
	)
	if c.creds != nil {
		if err := c.creds.Clear(); err != nil {
			c.log.Warn("clearing stored credential failed", zap.Error(err))
		}
	}
	if c.onSessionInvalidated != nil {
		c.onSessionInvalidated()
	}
}
