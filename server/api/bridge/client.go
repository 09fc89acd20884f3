package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/rs/zerolog"
)

const (
	maxRetries    = 3
	retryBaseWait = 200 * time.Millisecond
)

// Client calls the Bridge JSON-RPC service of a running server.
type Client struct {
	endpoint string
	http     *http.Client
	log      zerolog.Logger
}

// NewClient returns a client for the JSON-RPC endpoint URL. A nil
// httpClient uses one with a timeout covering the default dispatch timeout.
func NewClient(endpoint string, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 150 * time.Second}
	}
	return &Client{
		endpoint: endpoint,
		http:     httpClient,
		log:      log.With().Str("component", "bridge-rpc-client").Str("endpoint", endpoint).Logger(),
	}
}

// Call invokes method with params and decodes the result into reply. The
// method may omit the service prefix. Connection failures are retried.
func (c *Client) Call(ctx context.Context, method string, params, reply any) error {
	if !strings.Contains(method, ".") {
		method = ServiceName + "." + method
	}
	body, err := json2.EncodeClientRequest(method, params)
	if err != nil {
		return fmt.Errorf("failed to encode client params: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			wait := retryBaseWait * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if isRetryable(err) {
				c.log.Debug().Err(err).Int("attempt", attempt+1).Msg("Request failed, retrying")
				continue
			}
			return fmt.Errorf("failed to issue request: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_ = cleanlyCloseBody(resp.Body)
			return fmt.Errorf("received status code: %d", resp.StatusCode)
		}

		err = json2.DecodeClientResponse(resp.Body, reply)
		_ = cleanlyCloseBody(resp.Body)
		return err
	}
	return fmt.Errorf("request failed after %d attempts: %w", maxRetries, lastErr)
}

// cleanlyCloseBody drains the body so the connection can be reused.
func cleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

func isRetryable(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
