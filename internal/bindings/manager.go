package bindings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/woxQAQ/wasmload/internal/wasm"
)

// Manager manages package lifecycle.
type Manager struct {
	paths    []string
	modules  *wasm.Loader
	loader   *Loader
	registry *Registry
	logger   *zap.Logger

	mu     sync.RWMutex
	loaded bool
}

// NewManager creates a new package manager scanning paths.
func NewManager(paths []string, modules *wasm.Loader, logger *zap.Logger) *Manager {
	return &Manager{
		paths:    paths,
		modules:  modules,
		loader:   NewLoader(modules, logger),
		registry: NewRegistry(logger),
		logger:   logger.With(zap.String("component", "bindings-manager")),
	}
}

// LoadAll discovers and loads all packages from configured paths.
func (m *Manager) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return fmt.Errorf("packages already loaded")
	}

	m.logger.Info("Loading packages",
		zap.Strings("paths", m.paths),
	)

	// Discover packages
	pkgs, err := m.loader.DiscoverPackages(ctx, m.paths)
	if err != nil {
		// No packages is not fatal
		var none *NoPackagesFoundError
		if errors.As(err, &none) {
			m.logger.Warn("No packages found in configured paths",
				zap.Strings("paths", m.paths),
			)
			m.loaded = true
			return nil
		}
		return err
	}

	// Register all packages
	for _, pkg := range pkgs {
		if err := m.registry.Register(pkg); err != nil {
			m.logger.Error("Failed to register package",
				zap.String("name", pkg.Manifest.Name),
				zap.Error(err),
			)
			continue
		}
	}

	m.loaded = true

	m.logger.Info("Packages loaded successfully",
		zap.Int("count", m.registry.Count()),
	)

	return nil
}

// GetPackage retrieves a package by name.
func (m *Manager) GetPackage(name string) (*Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pkg, ok := m.registry.Get(name)
	if !ok {
		return nil, &PackageNotFoundError{PackageName: name}
	}

	return pkg, nil
}

// Instantiate creates a new handle for a package. Every call yields an
// independent handle the caller must close.
func (m *Manager) Instantiate(ctx context.Context, name string) (*wasm.Handle, error) {
	pkg, err := m.GetPackage(name)
	if err != nil {
		return nil, err
	}

	return m.modules.InitSync(ctx, pkg.Compiled)
}

// Run instantiates a package, calls its run export and closes the handle.
func (m *Manager) Run(ctx context.Context, name string) ([]uint64, error) {
	pkg, err := m.GetPackage(name)
	if err != nil {
		return nil, err
	}

	return m.modules.Run(ctx, pkg.Compiled)
}

// Registry returns the package registry (for testing/inspection).
func (m *Manager) Registry() *Registry {
	return m.registry
}

// IsLoaded returns whether packages have been loaded.
func (m *Manager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}
