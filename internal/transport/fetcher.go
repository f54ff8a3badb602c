package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/andjpython/Estacionamento-Free/internal/clock"
	"github.com/andjpython/Estacionamento-Free/internal/logging"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 4 << 20

// Request describes one logical call.
type Request struct {
	Method string
	// Path is resolved against Config.BaseURL unless it is already absolute.
	Path   string
	Header http.Header
	Body   []byte

	// Terminal lists non-2xx statuses that end Send on first sight instead
	// of being retried. The caller interprets them.
	Terminal []int
}

// Response is a completed HTTP exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
	Attempts   int
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return IsSuccess(r.StatusCode)
}

// Fetcher performs backend requests.
type Fetcher struct {
	httpClient *http.Client
	config     Config
	clock      clock.Clock
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher. A nil clk uses the real clock.
func NewFetcher(config Config, logger *slog.Logger, clk clock.Clock) *Fetcher {
	if clk == nil {
		clk = clock.Real()
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		clock:      clk,
		logger:     logging.Component(logger, "transport"),
	}
}

// Config returns the fetcher's settings.
func (f *Fetcher) Config() Config {
	return f.config
}

// URL resolves path against the base URL.
func (f *Fetcher) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(f.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Send performs req, retrying transport failures and non-2xx statuses up to
// MaxAttempts times. There is no wait before the first attempt and none
// after the last. When every attempt fails it returns an *ExhaustedError.
func (f *Fetcher) Send(ctx context.Context, req Request) (*Response, error) {
	requestID := uuid.NewString()
	logger := f.logger.With("method", req.Method, "path", req.Path, "request_id", requestID)

	var lastErr error
	for attempt := 0; attempt < f.config.MaxAttempts; attempt++ {
		if delay := f.config.Backoff(attempt); delay > 0 {
			logger.Debug("retrying after delay", "attempt", attempt+1, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, ctx.Err())
			case <-f.clock.After(delay):
			}
		}

		resp, err := f.attempt(ctx, req, requestID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, ctx.Err())
			}
			lastErr = err
			logger.Debug("attempt failed", "attempt", attempt+1, "error", err)
			continue
		}
		resp.Attempts = attempt + 1

		if !IsRetryableStatus(resp.StatusCode, req.Terminal) {
			logger.Debug("request complete", "status", resp.StatusCode, "attempts", resp.Attempts)
			return resp, nil
		}
		lastErr = &StatusError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
		logger.Debug("attempt failed", "attempt", attempt+1, "status", resp.StatusCode)
	}

	logger.Warn("request failed", "attempts", f.config.MaxAttempts, "error", lastErr)
	return nil, &ExhaustedError{Attempts: f.config.MaxAttempts, Last: lastErr}
}

// Do performs a single attempt and returns the response whatever its status.
func (f *Fetcher) Do(ctx context.Context, req Request) (*Response, error) {
	requestID := uuid.NewString()
	resp, err := f.attempt(ctx, req, requestID)
	if err != nil {
		f.logger.Debug("request failed", "method", req.Method, "path", req.Path, "request_id", requestID, "error", err)
		return nil, err
	}
	resp.Attempts = 1
	f.logger.Debug("request complete", "method", req.Method, "path", req.Path, "request_id", requestID, "status", resp.StatusCode)
	return resp, nil
}

// attempt performs exactly one HTTP exchange.
func (f *Fetcher) attempt(ctx context.Context, req Request, requestID string) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, f.URL(req.Path), body)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("X-Request-ID", requestID)

	httpResp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
		RequestID:  requestID,
	}, nil
}
