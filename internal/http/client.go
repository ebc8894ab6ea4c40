package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ligustah/drivefetch/pkg/partition"
)

// Common errors.
var (
	ErrNotFound     = errors.New("http: resource not found")
	ErrForbidden    = errors.New("http: access forbidden")
	ErrUnauthorized = errors.New("http: unauthorized")
	ErrServerError  = errors.New("http: server error")

	// ErrRangeNotSupported is returned when a ranged request is answered
	// with a body that does not start at the requested offset.
	ErrRangeNotSupported = errors.New("http: range requests not supported")
)

// DefaultReadSize is the buffer size for incremental body reads.
const DefaultReadSize = 1 << 18

// Options configures the HTTP client.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 100
	MaxIdleConnsPerHost int

	// Timeout for individual requests. Zero means no timeout.
	Timeout time.Duration

	// ReadSize is the buffer size used when reading a body incrementally.
	// Default: DefaultReadSize
	ReadSize int

	// Logger receives failed-fetch diagnostics. Nil disables logging.
	Logger *zerolog.Logger
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 100,
		ReadSize:            DefaultReadSize,
	}
}

// StatusError is returned when a fetch receives a status other than 200 or
// 206. It wraps one of the package's sentinel errors when one applies.
type StatusError struct {
	Code  int
	Range string // attempted Range header, empty for whole-file fetches
	err   error
}

func (e *StatusError) Error() string {
	if e.Range == "" {
		return fmt.Sprintf("unexpected status code: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code: %d (range %s)", e.Code, e.Range)
}

func (e *StatusError) Unwrap() error {
	return e.err
}

// NewStatusError returns a StatusError for code, wrapping the matching
// sentinel error.
func NewStatusError(code int) *StatusError {
	return &StatusError{Code: code, err: CheckStatus(code)}
}

// FileInfo contains metadata about a remote file.
type FileInfo struct {
	Size          int64
	ETag          string
	AcceptsRanges bool
	ContentType   string
	LastModified  time.Time
}

// Client is an HTTP client for authenticated content fetches.
type Client struct {
	client *http.Client
	opts   Options
	log    zerolog.Logger
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = 100
	}
	if opts.ReadSize <= 0 {
		opts.ReadSize = DefaultReadSize
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true, // We want raw bytes for range requests
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts: opts,
		log:  log,
	}
}

// Do sends req with bearer authentication when token is non-empty.
// The caller owns the response body.
func (c *Client) Do(req *http.Request, token string) (*http.Response, error) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.client.Do(req)
}

// Head performs a HEAD request to get file metadata.
func (c *Client) Head(ctx context.Context, url, token string) (*FileInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req, token)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	if err := CheckStatus(resp.StatusCode); err != nil {
		return nil, &StatusError{Code: resp.StatusCode, err: err}
	}

	info := &FileInfo{
		Size:          resp.ContentLength,
		ETag:          cleanETag(resp.Header.Get("ETag")),
		AcceptsRanges: resp.Header.Get("Accept-Ranges") == "bytes",
		ContentType:   resp.Header.Get("Content-Type"),
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			info.LastModified = t
		}
	}

	return info, nil
}

// Fetch downloads url, or the part of it covered by rng when rng is non-nil.
//
// When onChunk is non-nil the body is read incrementally and onChunk is called
// with the length of every chunk as it arrives. On that path a ranged body
// longer than rng.Len() is cut back to rng.Len(); the excess is dropped from
// the end. When onChunk is nil the body is read in one step and returned as
// is.
func (c *Client) Fetch(ctx context.Context, url, token string, rng *partition.Partition, onChunk func(int64)) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var rangeHeader string
	if rng != nil {
		rangeHeader = rng.Header()
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := c.Do(req, token)
	if err != nil {
		c.log.Error().Err(err).Str("range", rangeHeader).Msg("fetch failed")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		c.log.Error().
			Int("status", resp.StatusCode).
			Str("range", rangeHeader).
			Str("body", snippet(resp.Body)).
			Msg("fetch rejected")
		return nil, &StatusError{Code: resp.StatusCode, Range: rangeHeader, err: CheckStatus(resp.StatusCode)}
	}

	if rng != nil && !rangeHonored(resp, rng) {
		c.log.Error().
			Int("status", resp.StatusCode).
			Str("range", rangeHeader).
			Str("content_range", resp.Header.Get("Content-Range")).
			Msg("server ignored range")
		return nil, fmt.Errorf("%w: range %s", ErrRangeNotSupported, rangeHeader)
	}

	if onChunk == nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return data, nil
	}

	var data bytes.Buffer
	if rng != nil {
		data.Grow(int(rng.Len()))
	} else if resp.ContentLength > 0 {
		data.Grow(int(resp.ContentLength))
	}

	buf := make([]byte, c.opts.ReadSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			data.Write(buf[:n])
			onChunk(int64(n))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read body: %w", readErr)
		}
	}

	out := data.Bytes()
	if rng != nil {
		if excess := int64(len(out)) - rng.Len(); excess > 0 {
			c.log.Debug().
				Str("range", rangeHeader).
				Int64("excess", excess).
				Msg("dropping trailing bytes beyond range")
			out = partition.TrimExcess(out, rng.Len())
		}
	}
	return out, nil
}

// CheckStatus returns an appropriate error for non-success status codes.
func CheckStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code >= 500:
		return ErrServerError
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}

// rangeHonored reports whether resp carries the bytes of rng. A 200 counts only
// when it names the range in Content-Range.
func rangeHonored(resp *http.Response, rng *partition.Partition) bool {
	cr := resp.Header.Get("Content-Range")
	if cr == "" {
		return resp.StatusCode == http.StatusPartialContent
	}
	return strings.HasPrefix(cr, fmt.Sprintf("bytes %d-", rng.Start))
}

// snippet returns the start of an error body for diagnostics.
func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}

// cleanETag removes quotes from an ETag value.
func cleanETag(etag string) string {
	etag = strings.TrimPrefix(etag, "W/")
	etag = strings.Trim(etag, `"`)
	return etag
}
