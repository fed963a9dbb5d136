package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single REST call when no other value is
// configured.
const DefaultTimeout = 10 * time.Second

// TokenFunc supplies the current bearer token. An empty return means
// no credential is attached. Only the session store writes the token;
// everything else reads it through a TokenFunc.
type TokenFunc func() string

// Client is a thin JSON client for the collaboration backend's REST API.
// It attaches Bearer credentials, enforces a per-call timeout, and maps
// response statuses onto the package's distinguished errors. It performs
// exactly one outbound call per invocation; retries are the caller's
// business.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokenFn    TokenFunc
	onExpired  func()
	log        *slog.Logger
}

// NewClient creates a client for the API rooted at baseURL. A zero
// timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// SetTokenFunc installs the credential source.
func (c *Client) SetTokenFunc(fn TokenFunc) {
	c.tokenFn = fn
}

// SetSessionExpiredHook installs the callback invoked when the backend
// rejects the credential (HTTP 401). The hook is expected to clear the
// session and route the UI to the login entry point.
func (c *Client) SetSessionExpiredHook(fn func()) {
	c.onExpired = fn
}

// Get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// Post performs an HTTP POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// Put performs an HTTP PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, result)
}

// Patch performs an HTTP PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPatch, path, body, result)
}

// Delete performs an HTTP DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do is the core HTTP method that builds the request, attaches auth,
// and maps the response onto the error taxonomy.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.attachToken(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// No response received: timeout, refused connection, DNS failure.
		c.log.Warn("request failed", "method", method, "path", path, "err", err)
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrNetwork, err)
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("reading response body: %w: %v", ErrNetwork, readErr)
	}

	if err := c.checkStatus(method, path, resp.StatusCode, respBody); err != nil {
		return err
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
	}

	return nil
}

// attachToken sets the Authorization header if a credential is available.
func (c *Client) attachToken(req *http.Request) {
	if c.tokenFn == nil {
		return
	}
	if token := c.tokenFn(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// checkStatus maps a non-2xx response onto the error taxonomy.
func (c *Client) checkStatus(method, path string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	switch {
	case status == http.StatusUnauthorized:
		c.log.Info("credential rejected, forcing re-authentication",
			"method", method, "path", path)
		if c.onExpired != nil {
			c.onExpired()
		}
		return fmt.Errorf("%s %s: %w", method, path, ErrSessionExpired)

	case status == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", method, path, ErrPermissionDenied)

	case status == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)

	case status >= 500:
		return fmt.Errorf("%s %s (%d): %w", method, path, status, ErrServer)
	}

	return fmt.Errorf("%s %s: %w", method, path,
		&StatusError{StatusCode: status, Message: serverMessage(body)})
}

// serverMessage extracts the backend's error message from a JSON body.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
