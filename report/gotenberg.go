// Package report renders ledger documents to PDF through Gotenberg.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrTimeout indicates the rendering request exceeded the configured timeout.
	ErrTimeout = errors.New("report: gotenberg timeout")
	// ErrInvalidResponse indicates Gotenberg returned a non-success status code.
	ErrInvalidResponse = errors.New("report: gotenberg invalid response")
	// ErrDisabled indicates no Gotenberg endpoint is configured.
	ErrDisabled = errors.New("report: pdf rendering disabled")
)

const (
	defaultRetries = 2
	defaultTimeout = 10 * time.Second
)

// Client wraps interactions with the Gotenberg API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	timeout    time.Duration
}

// NewClient constructs a new client. An empty baseURL yields a client whose
// calls fail with ErrDisabled.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retries:    defaultRetries,
		timeout:    defaultTimeout,
	}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyNetError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}
	return nil
}

// RenderHTML converts an HTML document into a PDF. Gateway failures and
// timeouts are retried; client errors are not.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}
	for field, value := range map[string]string{"paperWidth": "8.27", "paperHeight": "11.7", "printBackground": "true"} {
		if err := writer.WriteField(field, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	payload := body.Bytes()
	contentType := writer.FormDataContentType()

	attempts := c.retries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		data, retry, err := c.post(ctx, payload, contentType)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("render pdf: %w", lastErr)
}

func (c *Client) post(ctx context.Context, payload []byte, contentType string) ([]byte, bool, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forms/chromium/convert/html", bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, classifyNetError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return nil, false, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	case err != nil:
		return nil, true, err
	}
	return data, false, nil
}

func classifyNetError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return err
}
