package bindings

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/woxQAQ/wasmload/internal/wasmtest"
)

func TestManager_NewManager(t *testing.T) {
	modules, _ := newModules(t)

	manager := NewManager([]string{"/tmp/packages"}, modules, zap.NewNop())

	if manager == nil {
		t.Fatal("NewManager() returned nil")
	}

	if manager.IsLoaded() {
		t.Error("Manager should not be loaded initially")
	}
}

func TestManager_LoadAll(t *testing.T) {
	ctx := context.Background()
	modules, _ := newModules(t)

	base := t.TempDir()
	writePackage(t, base, "web", runManifest, wasmtest.RunModule(11))

	manager := NewManager([]string{base}, modules, zap.NewNop())

	if err := manager.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}

	if !manager.IsLoaded() {
		t.Error("Manager should be loaded after LoadAll()")
	}

	if manager.Registry().Count() != 1 {
		t.Errorf("expected 1 package, got %d", manager.Registry().Count())
	}

	if err := manager.LoadAll(ctx); err == nil {
		t.Error("Second LoadAll() should fail")
	}
}

func TestManager_LoadAll_NoPackages(t *testing.T) {
	modules, _ := newModules(t)

	manager := NewManager([]string{t.TempDir()}, modules, zap.NewNop())

	// No packages is not an error
	if err := manager.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}

	if !manager.IsLoaded() {
		t.Error("Manager should be loaded even without packages")
	}
}

func TestManager_GetPackage_NotFound(t *testing.T) {
	modules, _ := newModules(t)
	manager := NewManager(nil, modules, zap.NewNop())

	// Try to get non-existent package
	_, err := manager.GetPackage("nonexistent")
	if err == nil {
		t.Fatal("GetPackage() should fail for non-existent package")
	}

	_, ok := err.(*PackageNotFoundError)
	if !ok {
		t.Errorf("expected PackageNotFoundError, got %T", err)
	}

	if _, err := manager.Run(context.Background(), "nonexistent"); err == nil {
		t.Error("Run() should fail for non-existent package")
	}
}

func TestManager_InstantiateAndRun(t *testing.T) {
	ctx := context.Background()
	modules, runtime := newModules(t)

	base := t.TempDir()
	writePackage(t, base, "web", runManifest, wasmtest.RunModule(11))

	manager := NewManager([]string{base}, modules, zap.NewNop())
	if err := manager.LoadAll(ctx); err != nil {
		t.Fatal(err)
	}

	first, err := manager.Instantiate(ctx, "web")
	if err != nil {
		t.Fatalf("Instantiate() failed: %v", err)
	}
	defer first.Close(ctx)

	second, err := manager.Instantiate(ctx, "web")
	if err != nil {
		t.Fatalf("Instantiate() failed: %v", err)
	}
	defer second.Close(ctx)

	if first.ID == second.ID {
		t.Error("Instances should be independent")
	}

	if runtime.ActiveInstances() != 2 {
		t.Errorf("expected 2 active instances, got %d", runtime.ActiveInstances())
	}

	res, err := manager.Run(ctx, "web")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if len(res) != 1 || res[0] != 11 {
		t.Errorf("Run() = %v, want [11]", res)
	}

	if runtime.ActiveInstances() != 2 {
		t.Errorf("Run() should release its instance, got %d active", runtime.ActiveInstances())
	}
}
