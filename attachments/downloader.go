// Package attachments downloads message attachments so deleted files can be
// re-uploaded with the deletion notification.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// DefaultMaxSize is the largest attachment re-uploaded by default. The
// platform rejects bot uploads above it.
const DefaultMaxSize = 10 << 20

// ErrTooLarge is returned for attachments above the size limit.
var ErrTooLarge = errors.New("attachment too large")

// StatusError is a non-OK response from the attachment host.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Code)
}

// Downloader fetches attachment bodies over HTTP.
type Downloader struct {
	client   *http.Client
	maxSize  int64
	attempts uint
	delay    time.Duration
}

// New creates a downloader. A nil client uses a client with a 30s timeout
// and maxSize <= 0 means DefaultMaxSize.
func New(client *http.Client, maxSize int64) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Downloader{client: client, maxSize: maxSize, attempts: 3, delay: time.Second}
}

// Fetch downloads url and returns its body and content type. Client errors
// and oversized files are not retried.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	var (
		body        []byte
		contentType string
	)
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			resp, err := d.client.Do(req)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					log.Printf("[attachments] failed to close response body: %v", closeErr)
				}
			}()

			if resp.StatusCode != http.StatusOK {
				statusErr := &StatusError{URL: url, Code: resp.StatusCode}
				if resp.StatusCode >= 400 && resp.StatusCode < 500 {
					return retry.Unrecoverable(statusErr)
				}
				return statusErr
			}
			if resp.ContentLength > d.maxSize {
				return retry.Unrecoverable(fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength))
			}

			data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
			if err != nil {
				return err
			}
			if int64(len(data)) > d.maxSize {
				return retry.Unrecoverable(fmt.Errorf("%w: over %d bytes", ErrTooLarge, d.maxSize))
			}
			body, contentType = data, resp.Header.Get("Content-Type")
			return nil
		},
		retry.Attempts(d.attempts),
		retry.Delay(d.delay),
		retry.MaxDelay(10*time.Second),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[attachments] retrying %s (attempt %d): %v", url, n+1, err)
		}),
	)
	if err != nil {
		return nil, "", err
	}
	return body, contentType, nil
}
