package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodySize caps buffered response bodies at 10MB.
const maxBodySize = 10 * 1024 * 1024

// retryBaseDelay is the linear backoff unit: attempt N waits N×this.
var retryBaseDelay = time.Second

// FetchResult is one successful direct fetch.
type FetchResult struct {
	Body        []byte
	ContentType string
	StatusCode  int
	ETag        string
}

// Fetcher issues direct GET requests with a realistic browser identity and
// bounded retries. Accept-Encoding is pinned to identity so bodies never
// need decompression.
type Fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// NewFetcher creates a fetcher. The timeout bounds each individual attempt,
// not the whole retry schedule.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return nil
			},
		},
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// FetchWithRetry performs a GET with linear-backoff retries on transient
// statuses (429, 5xx). Other 4xx statuses fail immediately. maxRetries+1
// attempts are made in total; the error from the final attempt is returned.
func (f *Fetcher) FetchWithRetry(ctx context.Context, url string, maxRetries int) (*FetchResult, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			// Linear schedule: attempt N waits N seconds.
			delay := time.Duration(attempt) * retryBaseDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("request cancelled during backoff: %w", ctx.Err())
			}
		}

		result, err := f.fetchOnce(ctx, url)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// Fetch performs a single GET without retries.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	return f.fetchOnce(ctx, url)
}

// fetchOnce issues one attempt with a per-attempt timeout.
func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*FetchResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8,zh-CN;q=0.6")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := f.client.Do(req)
	if err != nil {
		// Timeouts are reported distinctly: operators need to tell a slow
		// origin from an unreachable one.
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
			return nil, &statusError{code: 0, msg: fmt.Sprintf("request timeout after %s", f.timeout), retryable: true}
		}
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpStatusError(resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, maxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
			return nil, &statusError{code: 0, msg: fmt.Sprintf("request timeout after %s", f.timeout), retryable: true}
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > maxBodySize {
		return nil, fmt.Errorf("content too large (exceeds %d bytes)", maxBodySize)
	}

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		ETag:        resp.Header.Get("ETag"),
	}, nil
}

// CheckReachable issues a HEAD request as a lightweight reachability probe.
func (f *Fetcher) CheckReachable(ctx context.Context, url string) error {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("head request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return httpStatusError(resp.StatusCode)
	}
	return nil
}

// statusError carries an HTTP status with a user-facing message and a
// retryability classification.
type statusError struct {
	code      int
	msg       string
	retryable bool
}

func (e *statusError) Error() string { return e.msg }

// httpStatusError builds the operator-facing message for a non-200 status.
func httpStatusError(code int) error {
	var msg string
	switch {
	case code == http.StatusTooManyRequests:
		msg = fmt.Sprintf("HTTP error: %d (rate limited, retry later)", code)
	case code == http.StatusNotFound:
		msg = fmt.Sprintf("HTTP error: %d (page not found)", code)
	case code == http.StatusForbidden:
		msg = fmt.Sprintf("HTTP error: %d (access denied)", code)
	case code >= 500:
		msg = fmt.Sprintf("HTTP error: %d (server error)", code)
	default:
		msg = fmt.Sprintf("HTTP error: %d", code)
	}

	return &statusError{
		code:      code,
		msg:       msg,
		retryable: code == http.StatusTooManyRequests || code >= 500,
	}
}

// isRetryable classifies transient transport errors: 429, 5xx and timeouts.
func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.retryable
	}
	return false
}
