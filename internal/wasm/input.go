package wasm

import (
	"net/http"
	"net/url"
)

// Input is anything a module can be initialized from: Bytes, Locator,
// Response, *CompiledModule or Deferred.
type Input interface {
	isInput()
}

// SyncInput is an Input that needs no retrieval: Bytes or *CompiledModule.
type SyncInput interface {
	Input
	isSyncInput()
}

// Bytes is a complete module binary.
type Bytes []byte

// Locator references module bytes: an http(s) URL, a file:// URL or a path.
type Locator string

// LocatorFromURL converts u into a Locator.
func LocatorFromURL(u *url.URL) Locator {
	return Locator(u.String())
}

// Response is an in-flight http response whose body holds the module.
type Response struct {
	*http.Response
}

// Deferred is an input that is not known yet.
type Deferred struct {
	Value *Future[Input]
}

// Defer wraps a future input.
func Defer(f *Future[Input]) Deferred {
	return Deferred{Value: f}
}

func (Bytes) isInput()           {}
func (Locator) isInput()         {}
func (Response) isInput()        {}
func (Deferred) isInput()        {}
func (*CompiledModule) isInput() {}

func (Bytes) isSyncInput()           {}
func (*CompiledModule) isSyncInput() {}
