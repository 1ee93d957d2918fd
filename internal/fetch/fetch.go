// Package fetch retrieves WebAssembly binaries from http(s) URLs or the
// local filesystem.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// WasmMediaType is the media type streaming compilation expects.
const WasmMediaType = "application/wasm"

// acceptEncoding lists the encodings decodeBody understands.
const acceptEncoding = "br, zstd, gzip, deflate"

// Options configures a Fetcher.
type Options struct {
	// HTTP client; http.DefaultClient if nil.
	Client *http.Client

	// Filesystem for file:// and bare path locators; the OS filesystem if nil.
	Fs afero.Fs

	// Maximum body size in bytes, 0 for unlimited.
	MaxBytes int64

	// Per-retrieval timeout, 0 for none.
	Timeout time.Duration

	// User-Agent header for http requests.
	UserAgent string
}

// Fetcher retrieves module bytes.
type Fetcher struct {
	client    *http.Client
	fs        afero.Fs
	maxBytes  int64
	timeout   time.Duration
	userAgent string
	logger    *zap.Logger
}

// New creates a Fetcher.
func New(opts Options, logger *zap.Logger) *Fetcher {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Fetcher{
		client:    client,
		fs:        fs,
		maxBytes:  opts.MaxBytes,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		logger:    logger.With(zap.String("component", "fetch")),
	}
}

// Fetch resolves locator and returns the module bytes. http and https
// locators are requested over the network, file:// URLs and bare paths are
// read from the filesystem.
func (f *Fetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("invalid locator '%s': %w", locator, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.fetchHTTP(ctx, u.String())
	case "file":
		return f.readFile(ctx, u.Path)
	case "":
		return f.readFile(ctx, locator)
	default:
		// Windows drive letters parse as a one letter scheme.
		if len(u.Scheme) == 1 && filepath.VolumeName(locator) != "" {
			return f.readFile(ctx, locator)
		}
		return nil, &UnsupportedSchemeError{Scheme: u.Scheme}
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, target string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", WasmMediaType)
	req.Header.Set("Accept-Encoding", acceptEncoding)
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	f.logger.Debug("Fetching Wasm module", zap.String("url", target))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}

	return f.ReadResponse(ctx, resp)
}

// ReadResponse consumes an in-flight response. The body is always closed.
func (f *Fetcher) ReadResponse(ctx context.Context, resp *http.Response) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, ErrNoBody
	}

	// Ensure the body is drained and closed even on decode errors.
	defer func(body io.ReadCloser) {
		_, _ = io.Copy(io.Discard, body)
		_ = body.Close()
	}(resp.Body)

	target := ""
	if resp.Request != nil && resp.Request.URL != nil {
		target = resp.Request.URL.String()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mediaType != WasmMediaType {
		f.logger.Warn("Response is not served as application/wasm, compiling from buffered bytes",
			zap.String("url", target),
			zap.String("content_type", resp.Header.Get("Content-Type")),
		)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := f.readAll(ctx, target, body)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Fetched Wasm module",
		zap.String("url", target),
		zap.Int("size_bytes", len(data)),
	)

	return data, nil
}

func (f *Fetcher) readFile(ctx context.Context, path string) ([]byte, error) {
	file, err := f.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return f.readAll(ctx, path, file)
}

func (f *Fetcher) readAll(ctx context.Context, locator string, r io.Reader) ([]byte, error) {
	if f.maxBytes > 0 {
		r = io.LimitReader(r, f.maxBytes+1)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, &ctxReader{ctx: ctx, r: r}); err != nil {
		return nil, err
	}

	if f.maxBytes > 0 && int64(buf.Len()) > f.maxBytes {
		return nil, &TooLargeError{Locator: locator, Limit: f.maxBytes}
	}
	return buf.Bytes(), nil
}

// CloseIdleConnections releases pooled connections of the http client.
func (f *Fetcher) CloseIdleConnections() {
	f.client.CloseIdleConnections()
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
