package wasm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	wasmMagic   = []byte{0x00, 0x61, 0x73, 0x6d} // \0asm
	wasmVersion = []byte{0x01, 0x00, 0x00, 0x00}
)

// validateHeader rejects buffers that are not a version 1 binary module.
func validateHeader(data []byte) error {
	if len(data) < len(wasmMagic)+len(wasmVersion) {
		return fmt.Errorf("binary too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[:4], wasmMagic) {
		return errors.New("invalid magic number")
	}
	if !bytes.Equal(data[4:8], wasmVersion) {
		return fmt.Errorf("unsupported binary version %x", data[4:8])
	}
	return nil
}

func digestOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// compile validates and compiles data. An empty name is replaced by a
// short digest. Compiled modules are cached by content.
func (r *Runtime) compile(ctx context.Context, name string, data []byte) (*CompiledModule, error) {
	if r.IsClosed() {
		return nil, &RuntimeClosedError{}
	}

	digest := digestOf(data)
	if name == "" {
		name = "sha256:" + digest[:12]
	}

	if err := validateHeader(data); err != nil {
		return nil, &CompilationError{ModuleName: name, Err: err}
	}

	// Check cache first
	if cached, ok := r.GetCompiledModule(digest); ok {
		r.logger.Debug("Module cache hit",
			zap.String("module", name),
			zap.String("cached_as", cached.Name),
		)
		if cached.Name != name {
			renamed := *cached
			renamed.Name = name
			return &renamed, nil
		}
		return cached, nil
	}

	r.logger.Info("Compiling Wasm module",
		zap.String("module", name),
		zap.Int("size_bytes", len(data)),
	)

	startTime := time.Now()

	// CompileModule decodes and validates the Wasm binary
	compiled, err := r.runtime.CompileModule(ctx, data)
	if err != nil {
		return nil, &CompilationError{
			ModuleName: name,
			Err:        err,
		}
	}

	// Keep our own copy, callers may reuse their buffer.
	binary := make([]byte, len(data))
	copy(binary, data)

	module := r.StoreCompiledModule(&CompiledModule{
		Module:     compiled,
		Name:       name,
		Digest:     digest,
		SizeBytes:  int64(len(data)),
		CompiledAt: time.Now().Unix(),
		binary:     binary,
	})
	if module.Module != compiled {
		// Lost a race against an identical compilation.
		_ = compiled.Close(ctx)
	}

	r.logger.Info("Module compiled successfully",
		zap.String("module", name),
		zap.Duration("duration", time.Since(startTime)),
		zap.Int("exported_functions", len(compiled.ExportedFunctions())),
	)

	return module, nil
}
