package bindings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/woxQAQ/wasmload/internal/fetch"
	"github.com/woxQAQ/wasmload/internal/wasm"
)

const runManifest = `
name: web
version: 0.1.0
wasm:
  file: web_bg.wasm
memory: memory
exports:
  - name: run
    params: []
    results: [i32]
`

// writePackage creates base/dir with a bindings.yaml and, if data is not
// nil, the web_bg.wasm it refers to.
func writePackage(t *testing.T, base, dir, manifest string, data []byte) string {
	t.Helper()

	pkgDir := filepath.Join(base, dir)
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, ManifestFile), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if data != nil {
		if err := os.WriteFile(filepath.Join(pkgDir, "web_bg.wasm"), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return pkgDir
}

func newModules(t *testing.T) (*wasm.Loader, *wasm.Runtime) {
	t.Helper()

	ctx := context.Background()
	logger := zap.NewNop()

	runtime, err := wasm.NewRuntime(ctx, logger, wasm.DefaultRuntimeConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	t.Cleanup(func() { runtime.Close(ctx) })

	return wasm.NewLoader(runtime, fetch.New(fetch.Options{}, logger), logger), runtime
}

func compile(t *testing.T, modules *wasm.Loader, data []byte) *wasm.CompiledModule {
	t.Helper()

	compiled, err := modules.Compile(context.Background(), wasm.Bytes(data))
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	return compiled
}

