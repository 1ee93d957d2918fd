package wasm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Handle is an instantiated module: its linear memory plus its exported
// functions. The export set is fixed at instantiation.
type Handle struct {
	// Instance metadata.
	ID        string
	Name      string
	CreatedAt int64

	runtime *Runtime
	engine  wazero.Runtime
	module  api.Module

	// Exported functions (cached for performance).
	exports map[string]api.Function
	defs    map[string]api.FunctionDefinition

	memory *Memory
	throw  *throwSlot

	// Guest code is single threaded.
	mu        sync.Mutex
	closeOnce sync.Once
}

func newHandle(r *Runtime, engine wazero.Runtime, module api.Module, name, id string, slot *throwSlot) *Handle {
	h := &Handle{
		ID:        id,
		Name:      name,
		CreatedAt: time.Now().Unix(),
		runtime:   r,
		engine:    engine,
		module:    module,
		defs:      module.ExportedFunctionDefinitions(),
		throw:     slot,
	}

	h.exports = make(map[string]api.Function, len(h.defs))
	for name := range h.defs {
		if fn := module.ExportedFunction(name); fn != nil {
			h.exports[name] = fn
		}
	}

	if mem := module.Memory(); mem != nil {
		h.memory = &Memory{mem: mem, handle: h}
	}

	return h
}

// Exports returns the sorted names of the exported functions.
func (h *Handle) Exports() []string {
	names := make([]string, 0, len(h.exports))
	for name := range h.exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExportDefinitions returns the signatures of the exported functions.
func (h *Handle) ExportDefinitions() map[string]api.FunctionDefinition {
	return h.defs
}

// MemoryExports returns the sorted names under which memory is exported.
func (h *Handle) MemoryExports() []string {
	defs := h.module.ExportedMemoryDefinitions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Function returns the exported function name.
func (h *Handle) Function(name string) (api.Function, bool) {
	fn, ok := h.exports[name]
	return fn, ok
}

// Memory returns the linear memory, or nil for modules without one.
func (h *Handle) Memory() *Memory {
	return h.memory
}

// Call invokes the exported function name. Calls on one handle are
// serialized. A guest that threw through __wbindgen_throw fails with an
// error wrapping *BindgenThrowError.
func (h *Handle) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn, ok := h.exports[name]
	if !ok {
		return nil, &FunctionNotFoundError{ModuleName: h.Name, FunctionName: name}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.throw.take()
	results, err := fn.Call(ctx, params...)
	if err != nil {
		if thrown := h.throw.take(); thrown != nil {
			return nil, fmt.Errorf("call to '%s' failed: %w", name, thrown)
		}
		return nil, fmt.Errorf("call to '%s' failed: %w", name, err)
	}
	return results, nil
}

// Close releases the instance and its memory. Safe to call multiple times.
func (h *Handle) Close(ctx context.Context) error {
	var err error
	h.closeOnce.Do(func() {
		h.runtime.DeleteInstance(h.ID)
		h.runtime.active.Add(-1)
		err = h.engine.Close(ctx)
	})
	return err
}
