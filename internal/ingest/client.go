package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/envidicy/insights/internal/utils"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// NewImportClient is NewHTTPClient that refuses redirects leaving hosts.
func NewImportClient(timeout time.Duration, hosts []string) HTTPClient {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			_, err := CheckImportURL(hosts, req.URL.String())
			return err
		},
	}
}

// CheckImportURL accepts http(s) URLs whose host is in hosts. An entry
// starting with "." also matches every subdomain of it.
func CheckImportURL(hosts []string, raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImport, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrImport, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case h == "":
		case h == host:
			return u, nil
		case strings.HasPrefix(h, ".") && strings.HasSuffix(host, h):
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: host %q", ErrImport, host)
}

// StatusError is a non-2xx answer from a remote export URL.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx: %d body=%s", e.Code, e.Body)
}

// client errors are not worth retrying
func retryable(err error) bool {
	if errors.Is(err, ErrImport) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return true
}

// GetWithRetry downloads rawURL, retrying transport errors and 5xx/429 with
// exponential backoff. At most limit bytes of the body are returned.
func GetWithRetry(ctx context.Context, c HTTPClient, rawURL string, limit int64, bo utils.Backoff, onAttempt func(err error)) ([]byte, error) {
	if rawURL == "" {
		return nil, errors.New("empty url")
	}
	var body []byte
	err := bo.Do(ctx, func(int) error {
		b, err := get(ctx, c, rawURL, limit)
		if onAttempt != nil {
			onAttempt(err)
		}
		if err == nil {
			body = b
			return nil
		}
		if !retryable(err) {
			return utils.Permanent(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func get(ctx context.Context, c HTTPClient, rawURL string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}
