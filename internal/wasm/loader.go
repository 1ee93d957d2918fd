package wasm

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path"

	"go.uber.org/zap"

	"github.com/woxQAQ/wasmload/internal/fetch"
)

var errNoInput = errors.New("no input given and no default locator configured")

// Fetcher retrieves module bytes for Locator and Response inputs.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
	ReadResponse(ctx context.Context, resp *http.Response) ([]byte, error)
}

// Loader turns inputs into handles.
type Loader struct {
	runtime        *Runtime
	fetcher        Fetcher
	defaultLocator Locator
	logger         *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithDefaultLocator sets the locator used when Init is called with a nil
// input.
func WithDefaultLocator(locator Locator) LoaderOption {
	return func(l *Loader) {
		l.defaultLocator = locator
	}
}

// NewLoader creates a loader. fetcher may be nil when only Bytes and
// *CompiledModule inputs are used.
func NewLoader(runtime *Runtime, fetcher Fetcher, logger *zap.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		runtime: runtime,
		fetcher: fetcher,
		logger:  logger.With(zap.String("component", "wasm-loader")),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// source is an input normalized for compilation: either bytes or an
// already compiled module.
type source struct {
	name     string
	data     []byte
	compiled *CompiledModule
}

// InitSync compiles and instantiates in without any retrieval.
func (l *Loader) InitSync(ctx context.Context, in SyncInput) (*Handle, error) {
	if in == nil {
		return nil, &CompilationError{Err: errors.New("nil input")}
	}
	return l.load(ctx, in, newPending(l.logger))
}

// Init retrieves in if needed, then compiles and instantiates it. It
// blocks until the handle is ready or the load failed.
func (l *Loader) Init(ctx context.Context, in Input) (*Handle, error) {
	return l.load(ctx, in, newPending(l.logger))
}

// InitAsync starts loading in and returns immediately. The returned future
// resolves to the handle; its state reports how far the load got. A caller
// that abandons a resolved future must still close the handle.
func (l *Loader) InitAsync(ctx context.Context, in Input) *Pending {
	p := newPending(l.logger)
	go func() {
		h, err := l.load(ctx, in, p)
		p.settle(h, err)
	}()
	return p
}

// Compile retrieves and compiles in without instantiating it.
func (l *Loader) Compile(ctx context.Context, in Input) (*CompiledModule, error) {
	src, err := l.resolve(ctx, in, newPending(l.logger))
	if err != nil {
		return nil, err
	}
	if src.compiled != nil {
		return src.compiled, nil
	}
	return l.runtime.compile(context.WithoutCancel(ctx), src.name, src.data)
}

// Run initializes in, calls its zero-argument run export and releases the
// handle again. Results and errors of either stage are returned unchanged.
func (l *Loader) Run(ctx context.Context, in Input) ([]uint64, error) {
	h, err := l.Init(ctx, in)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := h.Close(context.WithoutCancel(ctx)); closeErr != nil {
			l.logger.Warn("Failed to close instance", zap.String("instance_id", h.ID), zap.Error(closeErr))
		}
	}()

	return h.Call(ctx, EntryPoint)
}

func (l *Loader) load(ctx context.Context, in Input, p *Pending) (*Handle, error) {
	src, err := l.resolve(ctx, in, p)
	if err != nil {
		p.enter(StateFailed)
		return nil, err
	}

	// Compilation and instantiation are not cancelled once started.
	ctx = context.WithoutCancel(ctx)

	compiled := src.compiled
	if compiled == nil {
		p.enter(StateCompiling)
		if compiled, err = l.runtime.compile(ctx, src.name, src.data); err != nil {
			p.enter(StateFailed)
			return nil, err
		}
	}

	p.enter(StateInstantiating)
	h, err := l.runtime.instantiate(ctx, compiled, "")
	if err != nil {
		p.enter(StateFailed)
		return nil, err
	}

	p.enter(StateReady)
	return h, nil
}

// resolve normalizes in to bytes or a compiled module, fetching when in
// refers to remote bytes.
func (l *Loader) resolve(ctx context.Context, in Input, p *Pending) (source, error) {
	switch v := in.(type) {
	case nil:
		if l.defaultLocator == "" {
			return source{}, &FetchError{Err: errNoInput}
		}
		return l.resolve(ctx, l.defaultLocator, p)

	case Deferred:
		if v.Value == nil {
			return source{}, &FetchError{Err: errors.New("deferred input without a value")}
		}
		next, err := v.Value.Wait(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return source{}, &FetchError{Err: err}
			}
			return source{}, err
		}
		return l.resolve(ctx, next, p)

	case Locator:
		p.enter(StateFetching)
		if l.fetcher == nil {
			return source{}, &FetchError{Locator: string(v), Err: errors.New("no fetcher configured")}
		}
		l.logger.Debug("Fetching Wasm module", zap.String("locator", string(v)))
		data, err := l.fetcher.Fetch(ctx, string(v))
		if err != nil {
			return source{}, fetchError(string(v), err)
		}
		return source{name: nameOf(string(v)), data: data}, nil

	case Response:
		p.enter(StateFetching)
		if v.Response == nil {
			return source{}, &FetchError{Err: errors.New("nil response")}
		}
		locator := ""
		if v.Request != nil && v.Request.URL != nil {
			locator = string(LocatorFromURL(v.Request.URL))
		}
		if v.Body == nil {
			return source{}, &FetchError{Locator: locator, Err: fetch.ErrNoBody}
		}
		if l.fetcher == nil {
			_ = v.Body.Close()
			return source{}, &FetchError{Locator: locator, Err: errors.New("no fetcher configured")}
		}
		data, err := l.fetcher.ReadResponse(ctx, v.Response)
		if err != nil {
			return source{}, fetchError(locator, err)
		}
		return source{name: nameOf(locator), data: data}, nil

	case Bytes:
		return source{data: v}, nil

	case *CompiledModule:
		if v == nil {
			return source{}, &CompilationError{Err: errors.New("nil compiled module")}
		}
		return source{name: v.Name, compiled: v}, nil

	default:
		return source{}, &CompilationError{Err: errors.New("unsupported input")}
	}
}

func fetchError(locator string, err error) error {
	fe := &FetchError{Locator: locator, Err: err}
	var status *fetch.StatusError
	if errors.As(err, &status) {
		fe.Status = status.StatusCode
	}
	return fe
}

// nameOf derives a module name from the last path element of a locator.
func nameOf(locator string) string {
	if locator == "" {
		return ""
	}
	p := locator
	if u, err := url.Parse(locator); err == nil {
		p = u.Path
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
