package wasm

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// HostModuleName is the import module guests use for host services.
const HostModuleName = "host"

// HostFunctionsImpl implements host functions for Wasm modules.
type HostFunctionsImpl struct {
	logger *zap.Logger
}

// NewHostFunctions creates a new host functions implementation.
func NewHostFunctions(logger *zap.Logger) *HostFunctionsImpl {
	return &HostFunctionsImpl{
		logger: logger.With(zap.String("component", "wasm-host")),
	}
}

// logMessage is called by Wasm modules to log messages.
// Signature: log_message(level, ptr, length)
// level: 0 = debug, 1 = info, 2 = warn, 3 = error
func (h *HostFunctionsImpl) logMessage(ctx context.Context, mod api.Module, level uint32, ptr uint32, length uint32) {
	mem := mod.Memory()
	if mem == nil {
		h.logger.Error("Guest without memory called log_message", zap.String("module", mod.Name()))
		return
	}

	msg, ok := mem.Read(ptr, length)
	if !ok {
		h.logger.Error("Failed to read log message from Wasm memory",
			zap.Uint32("ptr", ptr),
			zap.Uint32("length", length),
		)
		return
	}

	logger := h.logger.With(zap.String("module", mod.Name()))
	switch level {
	case 0:
		logger.Debug(string(msg))
	case 1:
		logger.Info(string(msg))
	case 2:
		logger.Warn(string(msg))
	case 3:
		logger.Error(string(msg))
	default:
		logger.Info(string(msg))
	}
}

// instantiate registers the host module in engine.
func (h *HostFunctionsImpl) instantiate(ctx context.Context, engine wazero.Runtime) error {
	_, err := engine.NewHostModuleBuilder(HostModuleName).
		NewFunctionBuilder().
		WithFunc(h.logMessage).
		WithParameterNames("level", "ptr", "length").
		Export("log_message").
		Instantiate(ctx)
	return err
}
