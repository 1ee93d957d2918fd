package fetch

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Matches non-compliant io.Closer implementations (e.g. zstd.Decoder)
type ncloser interface {
	Close()
}

type readCloser struct {
	io.Reader
}

// Close readers with differing Close() implementations
func (r readCloser) Close() error {
	var err error
	switch v := r.Reader.(type) {
	case io.Closer:
		err = v.Close()
	case ncloser:
		v.Close()
	}
	return err
}

// decodeBody wraps the response body according to its Content-Encoding.
// Stacked encodings are not supported.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))

	var (
		decoder io.Reader
		err     error
	)
	switch encoding {
	case "", "identity":
		return io.NopCloser(resp.Body), nil
	case "gzip", "x-gzip":
		decoder, err = gzip.NewReader(resp.Body)
	case "deflate":
		decoder, err = zlib.NewReader(resp.Body)
	case "zstd":
		decoder, err = zstd.NewReader(resp.Body)
	case "br":
		decoder = brotli.NewReader(resp.Body)
	default:
		return nil, &DecompressionError{Encoding: encoding, Err: errUnsupportedEncoding}
	}
	if err != nil {
		return nil, &DecompressionError{Encoding: encoding, Err: err}
	}

	return &decodeErrReader{readCloser: readCloser{decoder}, encoding: encoding}, nil
}

// decodeErrReader tags read errors of a decoder as decompression errors.
type decodeErrReader struct {
	readCloser
	encoding string
}

func (d *decodeErrReader) Read(p []byte) (int, error) {
	n, err := d.readCloser.Read(p)
	if err != nil && err != io.EOF {
		return n, &DecompressionError{Encoding: d.encoding, Err: err}
	}
	return n, err
}

var errUnsupportedEncoding = errors.New("unsupported content encoding")
