package fetch

import (
	"errors"
	"fmt"
)

// ErrNoBody is returned for a response that carries no body.
var ErrNoBody = errors.New("response without body")

// StatusError occurs when the server answers with a non-success status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status for '%s': %s", e.URL, e.Status)
}

// TooLargeError occurs when the body exceeds the configured limit.
type TooLargeError struct {
	Locator string
	Limit   int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("module '%s' exceeds the %d byte limit", e.Locator, e.Limit)
}

// UnsupportedSchemeError occurs for locators that are neither http(s) nor file paths.
type UnsupportedSchemeError struct {
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("unsupported locator scheme '%s'", e.Scheme)
}

// DecompressionError occurs when a Content-Encoding cannot be decoded.
type DecompressionError struct {
	Encoding string
	Err      error
}

func (e *DecompressionError) Error() string {
	return fmt.Sprintf("error decompressing response body (%s): %v", e.Encoding, e.Err)
}

func (e *DecompressionError) Unwrap() error {
	return e.Err
}
