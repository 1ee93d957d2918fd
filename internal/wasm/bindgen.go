package wasm

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// Import modules emitted by wasm-bindgen.
const (
	BindgenModule   = "__wbindgen_placeholder__"
	ExternrefModule = "__wbindgen_externref_xform__"
)

// Exports wasm-bindgen generates for every module.
const (
	EntryPoint    = "run"
	MallocExport  = "__wbindgen_malloc"
	ReallocExport = "__wbindgen_realloc"
	FreeExport    = "__wbindgen_free"
	StartExport   = "__wbindgen_start"
)

// startFunctions run right after instantiation when exported.
var startFunctions = []string{"_initialize", StartExport}

// throwSlot holds the error of the last __wbindgen_throw of a handle.
type throwSlot struct {
	mu  sync.Mutex
	err *BindgenThrowError
}

func (s *throwSlot) set(err *BindgenThrowError) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *throwSlot) take() *BindgenThrowError {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}

// instantiateBindgenStubs satisfies the wasm-bindgen glue imports of
// modName. Without a JavaScript host the glue has nothing to talk to, so all
// imports become stubs returning zeros, except __wbindgen_throw which aborts
// the current call with the guest's message.
func instantiateBindgenStubs(
	ctx context.Context,
	engine wazero.Runtime,
	modName string,
	defs []api.FunctionDefinition,
	slot *throwSlot,
	logger *zap.Logger,
) error {
	builder := engine.NewHostModuleBuilder(modName)

	for _, def := range defs {
		_, name, _ := def.Import()
		params, results := def.ParamTypes(), def.ResultTypes()

		if name == "__wbindgen_throw" && len(params) == 2 {
			builder.NewFunctionBuilder().
				WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, m api.Module, stack []uint64) {
					err := &BindgenThrowError{Message: readGuestString(m, stack[0], stack[1])}
					slot.set(err)
					panic(err)
				}), params, results).
				Export(name)
			continue
		}

		builder.NewFunctionBuilder().
			WithGoFunction(api.GoFunc(func(ctx context.Context, stack []uint64) {
				logger.Debug("Bindgen stub called", zap.String("import", name))
				for i := range results {
					stack[i] = 0
				}
			}), params, results).
			Export(name)
	}

	_, err := builder.Instantiate(ctx)
	return err
}

func readGuestString(m api.Module, ptr, length uint64) string {
	mem := m.Memory()
	if mem == nil {
		return ""
	}
	buf, ok := mem.Read(api.DecodeU32(ptr), api.DecodeU32(length))
	if !ok {
		return ""
	}
	return string(buf)
}
