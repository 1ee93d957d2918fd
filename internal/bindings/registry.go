package bindings

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry manages loaded packages.
type Registry struct {
	sync.RWMutex
	packages map[string]*Package // name -> package
	logger   *zap.Logger
}

// NewRegistry creates a new package registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		packages: make(map[string]*Package),
		logger:   logger.With(zap.String("component", "bindings-registry")),
	}
}

// Register adds a package to the registry.
func (r *Registry) Register(pkg *Package) error {
	r.Lock()
	defer r.Unlock()

	name := pkg.Manifest.Name

	// Check for duplicates
	if _, exists := r.packages[name]; exists {
		return &PackageAlreadyRegisteredError{PackageName: name}
	}

	r.packages[name] = pkg

	r.logger.Info("Package registered",
		zap.String("name", name),
		zap.String("version", pkg.Manifest.Version),
	)

	return nil
}

// Get retrieves a package by name.
func (r *Registry) Get(name string) (*Package, bool) {
	r.RLock()
	defer r.RUnlock()

	pkg, ok := r.packages[name]
	return pkg, ok
}

// List returns all registered packages sorted by name.
func (r *Registry) List() []*Package {
	r.RLock()
	defer r.RUnlock()

	result := make([]*Package, 0, len(r.packages))
	for _, pkg := range r.packages {
		result = append(result, pkg)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Manifest.Name < result[j].Manifest.Name
	})
	return result
}

// Unregister removes a package from the registry.
func (r *Registry) Unregister(name string) {
	r.Lock()
	defer r.Unlock()

	if _, ok := r.packages[name]; !ok {
		return
	}

	delete(r.packages, name)

	r.logger.Info("Package unregistered", zap.String("name", name))
}

// Count returns the number of registered packages.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.packages)
}
