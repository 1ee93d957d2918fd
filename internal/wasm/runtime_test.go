package wasm

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/wasmload/internal/wasmtest"
)

func TestNewRuntime(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	if runtime == nil {
		t.Fatal("Runtime is nil")
	}

	// Cleanup
	if err := runtime.Close(context.Background()); err != nil {
		t.Errorf("Failed to close runtime: %v", err)
	}
}

func TestNewRuntimeRejectsMemoryLimit(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := NewRuntime(context.Background(), logger, &RuntimeConfig{MemoryPages: maxMemoryPages + 1})
	if err == nil {
		t.Fatal("Expected error for memory limit above 4GiB")
	}
}

func TestNewRuntimeWithCacheDir(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	config := DefaultRuntimeConfig()
	config.CacheDir = t.TempDir()

	runtime, err := NewRuntime(ctx, logger, config)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	defer runtime.Close(ctx)

	if _, err := runtime.compile(ctx, "run", wasmtest.RunModule(1)); err != nil {
		t.Fatalf("Failed to compile with file cache: %v", err)
	}
}

func TestRuntimeCloseIdempotent(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Close multiple times should not error.
	if err := runtime.Close(ctx); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := runtime.Close(ctx); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestDefaultRuntimeConfig(t *testing.T) {
	config := DefaultRuntimeConfig()

	if config.MemoryPages != 256 {
		t.Errorf("Default memory pages = %d, want 256", config.MemoryPages)
	}

	if config.DebugEnabled {
		t.Error("Debug should be disabled by default")
	}

	if config.MaxInstances != 100 {
		t.Errorf("Default max instances = %d, want 100", config.MaxInstances)
	}

	if config.EnableWASI {
		t.Error("WASI should be disabled by default")
	}
}

func TestRuntimeConfiguration(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	config := &RuntimeConfig{
		MemoryPages:  128,
		DebugEnabled: true,
		MaxInstances: 50,
	}

	runtime, err := NewRuntime(ctx, logger, config)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	if runtime.config.MemoryPages != 128 {
		t.Errorf("Memory pages not set correctly")
	}

	runtime.Close(ctx)
}

func TestRuntimeContextCancellation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx, cancel := context.WithCancel(context.Background())

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Cancel context.
	cancel()

	// Close with cancelled context.
	err = runtime.Close(ctx)
	// wazero should handle cancelled context gracefully
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("Unexpected error when closing with cancelled context: %v", err)
	}
}

func TestRuntimeModuleCache(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer runtime.Close(ctx)

	module := &CompiledModule{
		Name:      "test-module",
		Digest:    "abc",
		SizeBytes: 1024,
	}

	if got := runtime.StoreCompiledModule(module); got != module {
		t.Error("First store should keep the given module")
	}

	other := &CompiledModule{Name: "other", Digest: "abc"}
	if got := runtime.StoreCompiledModule(other); got != module {
		t.Error("Second store of the same digest should return the first module")
	}

	retrieved, ok := runtime.GetCompiledModule("abc")
	if !ok {
		t.Fatal("Failed to retrieve module from cache")
	}

	if retrieved.Name != "test-module" {
		t.Errorf("Retrieved wrong module: %s", retrieved.Name)
	}
}

func TestRuntimeInstanceTracking(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer runtime.Close(ctx)

	h := &Handle{ID: "test-instance"}
	runtime.StoreInstance(h)

	retrieved, ok := runtime.GetInstance("test-instance")
	if !ok {
		t.Fatal("Failed to retrieve instance from tracking")
	}

	if retrieved != h {
		t.Errorf("Retrieved wrong instance")
	}

	// Test deletion.
	runtime.DeleteInstance("test-instance")

	_, ok = runtime.GetInstance("test-instance")
	if ok {
		t.Error("Instance should have been deleted")
	}
}

func TestRuntimeIsClosed(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}

	if runtime.IsClosed() {
		t.Error("Runtime should not be closed initially")
	}

	runtime.Close(ctx)

	if !runtime.IsClosed() {
		t.Error("Runtime should be closed after Close()")
	}

	_, err = runtime.compile(ctx, "late", wasmtest.RunModule(1))
	var closedErr *RuntimeClosedError
	if !errors.As(err, &closedErr) {
		t.Errorf("Compile after Close() = %v, want RuntimeClosedError", err)
	}
}

func TestFetchError(t *testing.T) {
	err := &FetchError{Locator: "https://example.com/web_bg.wasm", Status: 404, Err: &testError{}}

	expected := "failed to fetch Wasm module 'https://example.com/web_bg.wasm' (status 404): test error"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}

	noStatus := &FetchError{Locator: "web_bg.wasm", Err: &testError{}}
	expected = "failed to fetch Wasm module 'web_bg.wasm': test error"
	if noStatus.Error() != expected {
		t.Errorf("Error message = %s, want %s", noStatus.Error(), expected)
	}
}

func TestCompilationError(t *testing.T) {
	err := &CompilationError{
		ModuleName: "test",
		Err:        &testError{},
	}

	expected := "failed to compile Wasm module 'test': test error"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}
}

func TestInstantiationError(t *testing.T) {
	err := &InstantiationError{
		ModuleName: "test",
		InstanceID: "inst-1",
		Err:        &testError{},
	}

	expected := "failed to instantiate module 'test' (instance: inst-1): test error"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}
}

func TestFunctionNotFoundError(t *testing.T) {
	err := &FunctionNotFoundError{
		ModuleName:   "test",
		FunctionName: "parse",
	}

	expected := "function 'parse' not found in module 'test'"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}
}

func TestUnresolvedImportsError(t *testing.T) {
	err := &UnresolvedImportsError{Imports: []string{"env.a", "env.b"}}

	expected := "unresolved imports: env.a, env.b"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}
}

// testError is a simple error for testing.
type testError struct{}

func (e *testError) Error() string {
	return "test error"
}
