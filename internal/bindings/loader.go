package bindings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/woxQAQ/wasmload/internal/wasm"
)

// Loader handles loading packages from disk.
type Loader struct {
	modules *wasm.Loader
	logger  *zap.Logger
}

// NewLoader creates a new package loader.
func NewLoader(modules *wasm.Loader, logger *zap.Logger) *Loader {
	return &Loader{
		modules: modules,
		logger:  logger.With(zap.String("component", "bindings-loader")),
	}
}

// LoadPackage loads a single package from a directory. The module is
// compiled and checked against the declared exports.
func (l *Loader) LoadPackage(ctx context.Context, dir string) (*Package, error) {
	l.logger.Debug("Loading package", zap.String("dir", dir))

	// Parse manifest
	manifest, err := ParseManifest(dir)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Loading package",
		zap.String("name", manifest.Name),
		zap.String("version", manifest.Version),
		zap.String("locator", string(manifest.Locator())),
	)

	// Compile Wasm module (uses internal caching)
	compiled, err := l.modules.Compile(ctx, manifest.Locator())
	if err != nil {
		return nil, &PackageLoadError{
			PackageName: manifest.Name,
			Err:         err,
		}
	}

	if mismatches := Check(manifest, compiled); len(mismatches) > 0 {
		return nil, &PackageLoadError{
			PackageName: manifest.Name,
			Err: &ExportMismatchError{
				PackageName: manifest.Name,
				Mismatches:  mismatches,
			},
		}
	}

	pkg := &Package{
		Manifest: manifest,
		Compiled: compiled,
		LoadedAt: time.Now(),
	}

	l.logger.Info("Package loaded successfully",
		zap.String("name", manifest.Name),
		zap.Int64("size_bytes", compiled.SizeBytes),
	)

	return pkg, nil
}

// DiscoverPackages scans directories for packages.
func (l *Loader) DiscoverPackages(ctx context.Context, paths []string) ([]*Package, error) {
	var pkgs []*Package
	var errs []error

	for _, basePath := range paths {
		l.logger.Debug("Scanning package directory", zap.String("path", basePath))

		// Read subdirectories
		entries, err := os.ReadDir(basePath)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("Package path does not exist", zap.String("path", basePath))
				continue
			}
			return nil, fmt.Errorf("failed to read directory '%s': %w", basePath, err)
		}

		// Try to load each subdirectory as a package
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			pkgDir := filepath.Join(basePath, entry.Name())

			pkg, err := l.LoadPackage(ctx, pkgDir)
			if err != nil {
				l.logger.Error("Failed to load package",
					zap.String("dir", pkgDir),
					zap.Error(err),
				)
				errs = append(errs, err)
				continue
			}

			pkgs = append(pkgs, pkg)
		}
	}

	// If we found some packages but had errors, log warning but continue
	if len(pkgs) > 0 && len(errs) > 0 {
		l.logger.Warn("Some packages failed to load",
			zap.Int("loaded", len(pkgs)),
			zap.Int("failed", len(errs)),
		)
	}

	// If no packages loaded, return error
	if len(pkgs) == 0 {
		return nil, &NoPackagesFoundError{Paths: paths}
	}

	return pkgs, nil
}
