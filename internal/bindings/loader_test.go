package bindings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/woxQAQ/wasmload/internal/wasm"
	"github.com/woxQAQ/wasmload/internal/wasmtest"
)

func TestLoader_LoadPackage_Valid(t *testing.T) {
	ctx := context.Background()
	modules, _ := newModules(t)

	loader := NewLoader(modules, zap.NewNop())
	dir := writePackage(t, t.TempDir(), "web", runManifest, wasmtest.RunModule(1))

	pkg, err := loader.LoadPackage(ctx, dir)
	if err != nil {
		t.Fatalf("LoadPackage() failed: %v", err)
	}

	if pkg.Name() != "web" {
		t.Errorf("expected name 'web', got '%s'", pkg.Name())
	}

	if pkg.Version() != "0.1.0" {
		t.Errorf("expected version '0.1.0', got '%s'", pkg.Version())
	}

	if !pkg.Declares("run") {
		t.Error("expected package to declare run")
	}

	if pkg.Declares("missing") {
		t.Error("package should not declare missing")
	}

	if pkg.Compiled == nil || pkg.Compiled.Name != "web_bg.wasm" {
		t.Errorf("expected compiled module named 'web_bg.wasm', got %+v", pkg.Compiled)
	}
}

func TestLoader_LoadPackage_ManifestNotFound(t *testing.T) {
	ctx := context.Background()
	modules, _ := newModules(t)

	loader := NewLoader(modules, zap.NewNop())

	_, err := loader.LoadPackage(ctx, filepath.Join(t.TempDir(), "nonexistent"))
	if err == nil {
		t.Fatal("LoadPackage() should fail for nonexistent directory")
	}

	_, ok := err.(*ManifestNotFoundError)
	if !ok {
		t.Errorf("expected ManifestNotFoundError, got %T", err)
	}
}

func TestLoader_LoadPackage_InvalidWasm(t *testing.T) {
	ctx := context.Background()
	modules, _ := newModules(t)

	loader := NewLoader(modules, zap.NewNop())
	dir := writePackage(t, t.TempDir(), "web", runManifest, []byte("not a module"))

	_, err := loader.LoadPackage(ctx, dir)
	if err == nil {
		t.Fatal("LoadPackage() should fail for invalid Wasm")
	}

	var loadErr *PackageLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected PackageLoadError, got %T", err)
	}

	var compErr *wasm.CompilationError
	if !errors.As(err, &compErr) {
		t.Errorf("expected wrapped CompilationError, got %v", err)
	}
}

func TestLoader_LoadPackage_ExportMismatch(t *testing.T) {
	ctx := context.Background()
	modules, _ := newModules(t)

	loader := NewLoader(modules, zap.NewNop())
	dir := writePackage(t, t.TempDir(), "web", runManifest, wasmtest.NoMemoryModule())

	_, err := loader.LoadPackage(ctx, dir)

	var mismatch *ExportMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected ExportMismatchError, got %v", err)
	}

	// run is missing, and so is the memory.
	if len(mismatch.Mismatches) != 2 {
		t.Errorf("expected 2 mismatches, got %v", mismatch.Mismatches)
	}
}

func TestLoader_DiscoverPackages(t *testing.T) {
	ctx := context.Background()
	modules, _ := newModules(t)

	loader := NewLoader(modules, zap.NewNop())
	base := t.TempDir()

	writePackage(t, base, "web", runManifest, wasmtest.RunModule(1))
	writePackage(t, base, "broken", "name: broken\n", nil)

	pkgs, err := loader.DiscoverPackages(ctx, []string{base, filepath.Join(base, "absent")})
	if err != nil {
		t.Fatalf("DiscoverPackages() failed: %v", err)
	}

	if len(pkgs) != 1 || pkgs[0].Name() != "web" {
		t.Errorf("expected only package 'web', got %d packages", len(pkgs))
	}
}

func TestLoader_DiscoverPackages_EmptyDir(t *testing.T) {
	ctx := context.Background()
	modules, _ := newModules(t)

	loader := NewLoader(modules, zap.NewNop())

	// Use a directory that exists but has no valid packages
	_, err := loader.DiscoverPackages(ctx, []string{t.TempDir()})
	if err == nil {
		t.Fatal("DiscoverPackages() should fail when no packages found")
	}

	_, ok := err.(*NoPackagesFoundError)
	if !ok {
		t.Errorf("expected NoPackagesFoundError, got %T", err)
	}
}

func TestLoader_DiscoverPackages_PathNotExist(t *testing.T) {
	ctx := context.Background()
	modules, _ := newModules(t)

	loader := NewLoader(modules, zap.NewNop())

	// Should return error when no packages found
	_, err := loader.DiscoverPackages(ctx, []string{"/nonexistent/path"})
	if err == nil {
		t.Fatal("DiscoverPackages() should fail when path doesn't exist")
	}

	_, ok := err.(*NoPackagesFoundError)
	if !ok {
		t.Errorf("expected NoPackagesFoundError, got %T", err)
	}
}
