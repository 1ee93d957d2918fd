// Package app wires configuration, retrieval, the Wasm runtime and the
// package manager together.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/woxQAQ/wasmload/internal/bindings"
	"github.com/woxQAQ/wasmload/internal/config"
	"github.com/woxQAQ/wasmload/internal/fetch"
	"github.com/woxQAQ/wasmload/internal/wasm"
)

// App owns the runtime, fetcher, loader and package manager built from a
// configuration.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	runtime  *wasm.Runtime
	fetcher  *fetch.Fetcher
	loader   *wasm.Loader
	packages *bindings.Manager
}

// New builds an App from cfg. Packages are discovered lazily.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	// Initialize Wasm runtime.
	wasmConfig := &wasm.RuntimeConfig{
		MemoryPages:  cfg.Wasm.MemoryPages,
		DebugEnabled: cfg.Wasm.Debug,
		CacheDir:     cfg.Wasm.CacheDir,
		MaxInstances: cfg.Wasm.MaxInstances,
		EnableWASI:   cfg.Wasm.EnableWASI,
	}

	runtime, err := wasm.NewRuntime(ctx, logger, wasmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Wasm runtime: %w", err)
	}

	fetcher := fetch.New(fetch.Options{
		MaxBytes:  cfg.Fetch.MaxBytes,
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
	}, logger)

	var opts []wasm.LoaderOption
	if cfg.DefaultLocator != "" {
		opts = append(opts, wasm.WithDefaultLocator(wasm.Locator(cfg.DefaultLocator)))
	}
	loader := wasm.NewLoader(runtime, fetcher, logger, opts...)

	logger.Info("Loader initialized",
		zap.Uint32("wasm_memory_pages", cfg.Wasm.MemoryPages),
		zap.String("wasm_cache_dir", cfg.Wasm.CacheDir),
		zap.String("default_locator", cfg.DefaultLocator),
	)

	return &App{
		cfg:      cfg,
		logger:   logger,
		runtime:  runtime,
		fetcher:  fetcher,
		loader:   loader,
		packages: bindings.NewManager(cfg.PackagePaths, loader, logger),
	}, nil
}

// Loader returns the module loader.
func (a *App) Loader() *wasm.Loader {
	return a.loader
}

// Packages returns the package manager, loading packages on first use.
func (a *App) Packages(ctx context.Context) (*bindings.Manager, error) {
	if !a.packages.IsLoaded() {
		if err := a.packages.LoadAll(ctx); err != nil {
			return nil, err
		}
	}
	return a.packages, nil
}

// Close gracefully shuts down the runtime and all handles.
func (a *App) Close(ctx context.Context) error {
	a.logger.Info("Shutting down")

	a.fetcher.CloseIdleConnections()

	// Shutdown Wasm runtime.
	if err := a.runtime.Close(ctx); err != nil {
		a.logger.Error("Failed to shutdown Wasm runtime", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	return nil
}
