// Package grobid provides a client for the GROBID structural parsing service.
//
// GROBID is long-running and often needs a manual restart when it wedges, so
// the client reports unreachability to the caller instead of retrying the
// whole document; only transient HTTP statuses get a small bounded retry.
package grobid

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrServiceUnavailable indicates the parsing service could not be reached
// or did not answer within the configured timeout.
var ErrServiceUnavailable = eris.New("grobid: service unavailable")

// CoordinateTypes are the TEI elements GROBID is asked to attach bounding
// coordinates to. The set matches the annotation types the viewer renders.
var CoordinateTypes = []string{
	"p", "s", "persName", "biblStruct", "figure", "formula", "head", "note",
	"title", "ref", "affiliation",
}

// Client defines the GROBID operations used by the annotator.
type Client interface {
	// IsAlive checks service health.
	IsAlive(ctx context.Context) error
	// ProcessFulltext parses a PDF and returns the TEI XML document with
	// coordinate annotations.
	ProcessFulltext(ctx context.Context, pdf []byte) ([]byte, error)
}

// Option configures the GROBID client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.timeout = d
	}
}

type httpClient struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a GROBID client for the given server URL.
func NewClient(server string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(server, "/"),
		timeout: 60 * time.Second,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) IsAlive(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/isalive", nil)
	if err != nil {
		return eris.Wrap(err, "grobid: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return unavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return eris.Wrapf(ErrServiceUnavailable, "health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *httpClient) ProcessFulltext(ctx context.Context, pdf []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, status, err := c.processOnce(ctx, pdf)
		if err != nil {
			return nil, unavailable(err)
		}

		switch {
		case status == http.StatusOK:
			return body, nil
		case retryableStatusCode(status) && attempt < maxAttempts:
			lastErr = eris.Errorf("grobid: status %d: %s", status, truncate(body))
			select {
			case <-ctx.Done():
				return nil, unavailable(ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		default:
			return nil, eris.Errorf("grobid: process fulltext failed with status %d: %s", status, truncate(body))
		}
	}

	return nil, unavailable(lastErr)
}

func (c *httpClient) processOnce(ctx context.Context, pdf []byte) ([]byte, int, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("input", "input.pdf")
	if err != nil {
		return nil, 0, eris.Wrap(err, "grobid: build multipart form")
	}
	if _, err := part.Write(pdf); err != nil {
		return nil, 0, eris.Wrap(err, "grobid: write pdf part")
	}
	for _, t := range CoordinateTypes {
		if err := w.WriteField("teiCoordinates", t); err != nil {
			return nil, 0, eris.Wrap(err, "grobid: write field")
		}
	}
	if err := w.WriteField("consolidateCitations", "1"); err != nil {
		return nil, 0, eris.Wrap(err, "grobid: write field")
	}
	if err := w.Close(); err != nil {
		return nil, 0, eris.Wrap(err, "grobid: close multipart form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/processFulltextDocument", &buf)
	if err != nil {
		return nil, 0, eris.Wrap(err, "grobid: create request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "grobid: read response body")
	}
	return body, resp.StatusCode, nil
}

func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// unavailable maps transport-level failures onto ErrServiceUnavailable while
// keeping the underlying cause in the chain.
func unavailable(err error) error {
	if err == nil {
		return ErrServiceUnavailable
	}
	return eris.Wrap(ErrServiceUnavailable, err.Error())
}

func truncate(body []byte) string {
	const max = 200
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
