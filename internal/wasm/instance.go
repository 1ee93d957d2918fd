package wasm

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

var instanceSeq atomic.Uint64

// generateInstanceID returns a process-unique instance ID.
func generateInstanceID() string {
	return fmt.Sprintf("inst-%d-%d", time.Now().UnixNano(), instanceSeq.Add(1))
}

// instantiate links and instantiates compiled in a fresh engine. Either a
// complete handle is returned or every resource created on the way is
// released again.
func (r *Runtime) instantiate(ctx context.Context, compiled *CompiledModule, instanceID string) (h *Handle, err error) {
	if r.IsClosed() {
		return nil, &RuntimeClosedError{}
	}

	// Generate instance ID if not provided.
	if instanceID == "" {
		instanceID = generateInstanceID()
	}

	fail := func(err error) error {
		return &InstantiationError{
			ModuleName: compiled.Name,
			InstanceID: instanceID,
			Err:        err,
		}
	}

	if limit := r.config.MaxInstances; limit > 0 {
		if r.active.Add(1) > int64(limit) {
			r.active.Add(-1)
			return nil, fail(fmt.Errorf("instance limit of %d reached", limit))
		}
	} else {
		r.active.Add(1)
	}
	defer func() {
		if err != nil {
			r.active.Add(-1)
		}
	}()

	r.logger.Info("Instantiating Wasm module",
		zap.String("module", compiled.Name),
		zap.String("instance_id", instanceID),
	)

	engine := wazero.NewRuntimeWithConfig(ctx, r.engineConfig())
	defer func() {
		if err != nil {
			_ = engine.Close(ctx)
		}
	}()

	// Hits the shared compilation cache.
	mod, err := engine.CompileModule(ctx, compiled.binary)
	if err != nil {
		return nil, fail(err)
	}

	slot := &throwSlot{}
	if err := r.link(ctx, engine, mod, slot); err != nil {
		return nil, fail(err)
	}

	// Instantiate the guest module against a fresh linear memory.
	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithStartFunctions(startFunctions...)

	module, err := engine.InstantiateModule(ctx, mod, moduleConfig)
	if err != nil {
		if thrown := slot.take(); thrown != nil {
			return nil, fail(thrown)
		}
		return nil, fail(err)
	}

	h = newHandle(r, engine, module, compiled.Name, instanceID, slot)

	if r.IsClosed() {
		// Raced with Close; nothing would release this handle.
		return nil, fail(&RuntimeClosedError{})
	}
	r.StoreInstance(h)

	r.logger.Info("Module instantiated successfully",
		zap.String("instance_id", instanceID),
		zap.Int("exported_functions", len(h.exports)),
	)

	return h, nil
}

// link instantiates one host module per import module of mod. Imports no
// host module can serve are reported together before anything is
// instantiated in their place.
func (r *Runtime) link(ctx context.Context, engine wazero.Runtime, mod wazero.CompiledModule, slot *throwSlot) error {
	if mems := mod.ImportedMemories(); len(mems) > 0 {
		modName, name, _ := mems[0].Import()
		return fmt.Errorf("imported memory %s.%s is not supported", modName, name)
	}

	byModule := make(map[string][]api.FunctionDefinition)
	for _, def := range mod.ImportedFunctions() {
		modName, _, _ := def.Import()
		byModule[modName] = append(byModule[modName], def)
	}

	modNames := make([]string, 0, len(byModule))
	for modName := range byModule {
		modNames = append(modNames, modName)
	}
	sort.Strings(modNames)

	var unresolved []string
	for _, modName := range modNames {
		if !r.canServe(modName) {
			for _, def := range byModule[modName] {
				_, name, _ := def.Import()
				unresolved = append(unresolved, modName+"."+name)
			}
		}
	}
	if len(unresolved) > 0 {
		return &UnresolvedImportsError{Imports: unresolved}
	}

	for _, modName := range modNames {
		var err error
		switch modName {
		case BindgenModule, ExternrefModule:
			err = instantiateBindgenStubs(ctx, engine, modName, byModule[modName], slot, r.logger)
		case HostModuleName:
			err = r.hostFuncs.instantiate(ctx, engine)
		case wasi_snapshot_preview1.ModuleName:
			_, err = wasi_snapshot_preview1.Instantiate(ctx, engine)
		}
		if err != nil {
			return fmt.Errorf("failed to link import module '%s': %w", modName, err)
		}
	}

	return nil
}

func (r *Runtime) canServe(modName string) bool {
	switch modName {
	case BindgenModule, ExternrefModule, HostModuleName:
		return true
	case wasi_snapshot_preview1.ModuleName:
		return r.config.EnableWASI
	default:
		return false
	}
}
