// Package datasource reads a bounded prefix of a dataset from a URL or a
// local path.
//
// Supported sources:
//   - http:// and https:// URLs
//   - file:// URLs
//   - bare local paths (treated as file:// internally)
//
// Reads are always bounded: ingestion never needs more than a prefix of the
// input, and an unbounded read of a remote source is an easy way to hang.
package datasource

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultMaxBytes bounds the sample size when Options.MaxBytes is zero.
const DefaultMaxBytes = 20000

// Options controls fetching.
type Options struct {
	// MaxBytes caps how many bytes are read from the source.
	// If <= 0, DefaultMaxBytes is used.
	MaxBytes int

	// AllowInsecureTLS skips TLS certificate verification for https sources.
	// Useful for internal endpoints with self-signed certs; prefer false in
	// production.
	AllowInsecureTLS bool

	// Timeout bounds the HTTP request when the parent context has no
	// deadline. If <= 0, 30 seconds is used.
	Timeout time.Duration
}

// Fetch reads up to opts.MaxBytes bytes from the given source.
//
// Edge cases:
//   - A source shorter than MaxBytes is returned in full.
//   - HTTP responses with status >= 400 are errors.
//
// Errors:
//   - Wraps the underlying I/O error with the source for context.
func Fetch(ctx context.Context, source string, opts Options) ([]byte, error) {
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return fetchHTTP(ctx, source, maxBytes, opts)
	case strings.HasPrefix(source, "file://"):
		u, err := url.Parse(source)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", source, err)
		}
		return fetchFile(u.Path, maxBytes)
	default:
		return fetchFile(source, maxBytes)
	}
}

func fetchFile(path string, maxBytes int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(maxBytes)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func fetchHTTP(ctx context.Context, rawURL string, maxBytes int, opts Options) ([]byte, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	transport := http.DefaultTransport
	if opts.AllowInsecureTLS {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		transport = t
	}
	client := &http.Client{Transport: transport}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", rawURL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxBytes)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return data, nil
}
