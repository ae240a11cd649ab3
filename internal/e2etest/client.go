package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// DefaultUserHeader is the header carrying the user ID forwarded by the authenticating gateway.
const DefaultUserHeader = "X-Pedalcoach-User"

// Client talks JSON to the API as a single user.
type Client struct {
	client     *http.Client
	url        string
	userHeader string
	userID     int
}

// StatusError is returned when the server responds with an unexpected status code.
type StatusError struct {
	StatusCode int
	// Message is the error field of the JSON error body, if any.
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Message)
}

// NewClient creates a client that sends requests as userID. A userID of 0 sends no user header.
func NewClient(url, userHeader string, userID int) *Client {
	return &Client{
		client:     &http.Client{}, //nolint:exhaustruct // defaults are fine for tests.
		url:        url,
		userHeader: userHeader,
		userID:     userID,
	}
}

// AsUser returns a client sharing the connection pool that sends requests as userID.
func (c *Client) AsUser(userID int) *Client {
	return &Client{
		client:     c.client,
		url:        c.url,
		userHeader: c.userHeader,
		userID:     userID,
	}
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	var (
		err  error
		req  *http.Request
		resp *http.Response
	)
	for {
		if req, err = c.newRequestWithContext(ctx, http.MethodGet, urlPath, nil); err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		if resp, err = c.client.Do(req); err == nil {
			if err = resp.Body.Close(); err != nil {
				return fmt.Errorf("close response body: %w", err)
			}
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Do sends a request with an optional JSON body and returns the raw response. The caller closes the body.
func (c *Client) Do(ctx context.Context, method, urlPath string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := c.newRequestWithContext(ctx, method, urlPath, reader)
	if err != nil {
		return nil, fmt.Errorf("new request with context: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

// GetJSON fetches urlPath and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, urlPath string, out any) error {
	return c.SendJSON(ctx, http.MethodGet, urlPath, nil, out)
}

// SendJSON encodes in as the request body, expects a 2xx response and decodes it into out. Both in and out may be
// nil. Other status codes are returned as *StatusError.
func (c *Client) SendJSON(ctx context.Context, method, urlPath string, in, out any) error {
	var (
		body []byte
		err  error
	)
	if in != nil {
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}
	resp, err := c.Do(ctx, method, urlPath, body)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &StatusError{StatusCode: resp.StatusCode, Message: errBody.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// newRequestWithContext creates a new HTTP request to the server that respects the given context.
func (c *Client) newRequestWithContext(
	ctx context.Context,
	method, urlPath string,
	body io.Reader,
) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)
	if req, err = http.NewRequestWithContext(ctx, method, c.url+urlPath, body); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userID != 0 {
		req.Header.Set(c.userHeader, strconv.Itoa(c.userID))
	}
	return req, nil
}

// StatusCode extracts the status code of a *StatusError or returns 0.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
