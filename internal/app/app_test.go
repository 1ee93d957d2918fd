package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/wasmload/internal/config"
	"github.com/woxQAQ/wasmload/internal/wasm"
	"github.com/woxQAQ/wasmload/internal/wasmtest"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	dir := t.TempDir()
	locator := filepath.Join(dir, "web_bg.wasm")
	if err := os.WriteFile(locator, wasmtest.RunModule(21), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.DefaultLocator = locator
	cfg.PackagePaths = []string{dir}

	a, err := New(ctx, cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	res, err := a.Loader().Run(ctx, nil)
	if err != nil {
		t.Fatalf("Run() with default locator failed: %v", err)
	}
	if len(res) != 1 || res[0] != 21 {
		t.Errorf("Run() = %v, want [21]", res)
	}

	manager, err := a.Packages(ctx)
	if err != nil {
		t.Fatalf("Packages() failed: %v", err)
	}
	if manager.Registry().Count() != 0 {
		t.Errorf("expected no packages, got %d", manager.Registry().Count())
	}

	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if _, err := a.Loader().InitSync(ctx, wasm.Bytes(wasmtest.RunModule(1))); err == nil {
		t.Error("InitSync() after Close() should fail")
	}
}

func TestNewInvalidRuntimeConfig(t *testing.T) {
	cfg := &config.Config{Wasm: config.WasmConfig{MemoryPages: 1 << 20}}

	if _, err := New(context.Background(), cfg, zaptest.NewLogger(t)); err == nil {
		t.Error("New() should fail for an invalid memory limit")
	}
}
