package wasm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
)

// maxMemoryPages is the 4GiB ceiling of a 32-bit linear memory.
const maxMemoryPages = 65536

// Runtime manages the wazero runtime lifecycle.
//
// One shared wazero runtime validates and compiles binaries. Every handle
// is instantiated in its own wazero runtime, so handles never share memory
// or host module state. All runtimes share one compilation cache, which makes
// compiling the same binary again for a new handle cheap.
type Runtime struct {
	// wazero runtime used for compilation
	runtime wazero.Runtime

	// Compiled code shared by all engines
	cache wazero.CompilationCache

	// Compiled module cache (key: sha256 of the binary -> value: compiled module)
	// This avoids recompiling the same Wasm binary multiple times
	modules sync.Map // map[string]*CompiledModule

	// Live handles (for cleanup on shutdown)
	// key: instance ID -> value: *Handle
	instances sync.Map
	active    atomic.Int64

	hostFuncs *HostFunctionsImpl

	config *RuntimeConfig
	logger *zap.Logger

	// Shutdown management
	closeOnce sync.Once
	closed    chan struct{}
}

// RuntimeConfig holds runtime configuration.
type RuntimeConfig struct {
	// Memory limits for Wasm modules (in pages, 64KB each)
	// Default: 256 pages = 16MB max memory per module
	MemoryPages uint32

	// Keep DWARF based stack traces in errors
	DebugEnabled bool

	// Compilation cache directory (for persistent caching)
	// If empty, uses in-memory caching only
	CacheDir string

	// Maximum number of live handles, 0 for unlimited
	MaxInstances int

	// Satisfy wasi_snapshot_preview1 imports
	EnableWASI bool
}

// CompiledModule is a validated, compiled binary ready to be instantiated.
type CompiledModule struct {
	// wazero compiled module
	Module wazero.CompiledModule

	// Module metadata
	Name      string
	Digest    string
	SizeBytes int64

	// Compilation timestamp
	CompiledAt int64

	binary []byte
}

// Exports returns the sorted names of the exported functions.
func (c *CompiledModule) Exports() []string {
	defs := c.Module.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRuntime creates and initializes a new wazero runtime.
// This should be called once during application startup.
func NewRuntime(ctx context.Context, logger *zap.Logger, config *RuntimeConfig) (*Runtime, error) {
	// Validate config
	if config == nil {
		config = DefaultRuntimeConfig()
	}
	if config.MemoryPages > maxMemoryPages {
		return nil, fmt.Errorf("memory limit of %d pages exceeds %d", config.MemoryPages, maxMemoryPages)
	}

	cache, err := newCompilationCache(config.CacheDir)
	if err != nil {
		return nil, err
	}

	runtime := &Runtime{
		cache:     cache,
		hostFuncs: NewHostFunctions(logger),
		config:    config,
		logger:    logger.With(zap.String("component", "wasm-runtime")),
		closed:    make(chan struct{}),
	}
	runtime.runtime = wazero.NewRuntimeWithConfig(ctx, runtime.engineConfig())

	logger.Info("Wasm runtime initialized",
		zap.Uint32("memory_pages", config.MemoryPages),
		zap.Bool("debug_enabled", config.DebugEnabled),
		zap.String("cache_dir", config.CacheDir),
		zap.Int("max_instances", config.MaxInstances),
		zap.Bool("wasi", config.EnableWASI),
	)

	return runtime, nil
}

// DefaultRuntimeConfig returns sensible defaults.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		MemoryPages:  256, // 16MB
		DebugEnabled: false,
		CacheDir:     "",
		MaxInstances: 100,
		EnableWASI:   false,
	}
}

func newCompilationCache(dir string) (wazero.CompilationCache, error) {
	if dir == "" {
		return wazero.NewCompilationCache(), nil
	}
	cache, err := wazero.NewCompilationCacheWithDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open compilation cache '%s': %w", dir, err)
	}
	return cache, nil
}

// engineConfig is shared by the compilation runtime and every handle.
func (r *Runtime) engineConfig() wazero.RuntimeConfig {
	cfg := wazero.NewRuntimeConfig().
		WithCompilationCache(r.cache).
		WithCloseOnContextDone(true).
		WithDebugInfoEnabled(r.config.DebugEnabled)
	if r.config.MemoryPages > 0 {
		cfg = cfg.WithMemoryLimitPages(r.config.MemoryPages)
	}
	return cfg
}

// Close gracefully shuts down the runtime.
// Safe to call multiple times (idempotent).
func (r *Runtime) Close(ctx context.Context) error {
	var err error
	r.closeOnce.Do(func() {
		r.logger.Info("Shutting down Wasm runtime")

		// Mark closed first so no new handle is tracked while we drain
		close(r.closed)

		// Close all live handles first
		r.instances.Range(func(key, value interface{}) bool {
			if closeErr := value.(*Handle).Close(ctx); closeErr != nil {
				r.logger.Warn("Failed to close instance",
					zap.String("instance_id", key.(string)),
					zap.Error(closeErr),
				)
			}
			return true
		})

		// Close the runtime (closes compiled modules)
		err = r.runtime.Close(ctx)

		if cacheErr := r.cache.Close(ctx); cacheErr != nil && err == nil {
			err = cacheErr
		}

		r.logger.Info("Wasm runtime shutdown complete")
	})

	return err
}

// GetCompiledModule retrieves a compiled module by binary digest.
func (r *Runtime) GetCompiledModule(digest string) (*CompiledModule, bool) {
	if val, ok := r.modules.Load(digest); ok {
		if mod, ok := val.(*CompiledModule); ok {
			return mod, true
		}
	}
	return nil, false
}

// StoreCompiledModule stores a compiled module in cache. If another
// goroutine stored the same binary first, that module is returned.
func (r *Runtime) StoreCompiledModule(module *CompiledModule) *CompiledModule {
	actual, _ := r.modules.LoadOrStore(module.Digest, module)
	return actual.(*CompiledModule)
}

// GetInstance retrieves a live handle.
func (r *Runtime) GetInstance(instanceID string) (*Handle, bool) {
	if val, ok := r.instances.Load(instanceID); ok {
		return val.(*Handle), true
	}
	return nil, false
}

// StoreInstance tracks a live handle.
func (r *Runtime) StoreInstance(h *Handle) {
	r.instances.Store(h.ID, h)
}

// DeleteInstance removes a handle from tracking.
func (r *Runtime) DeleteInstance(instanceID string) {
	r.instances.Delete(instanceID)
}

// ActiveInstances returns the number of live handles.
func (r *Runtime) ActiveInstances() int {
	return int(r.active.Load())
}

// IsClosed returns whether the runtime has been closed.
func (r *Runtime) IsClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}
