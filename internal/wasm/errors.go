package wasm

import (
	"fmt"
	"strings"
)

// FetchError occurs when the module bytes cannot be retrieved.
type FetchError struct {
	Locator string
	Status  int
	Err     error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("failed to fetch Wasm module '%s' (status %d): %v", e.Locator, e.Status, e.Err)
	}
	return fmt.Sprintf("failed to fetch Wasm module '%s': %v", e.Locator, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// CompilationError occurs when Wasm module compilation fails
type CompilationError struct {
	ModuleName string
	Err        error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("failed to compile Wasm module '%s': %v", e.ModuleName, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// InstantiationError occurs when module instantiation fails
type InstantiationError struct {
	ModuleName string
	InstanceID string
	Err        error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to instantiate module '%s' (instance: %s): %v",
		e.ModuleName, e.InstanceID, e.Err)
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}

// UnresolvedImportsError lists imports no host module can satisfy.
type UnresolvedImportsError struct {
	Imports []string
}

func (e *UnresolvedImportsError) Error() string {
	return fmt.Sprintf("unresolved imports: %s", strings.Join(e.Imports, ", "))
}

// FunctionNotFoundError occurs when an exported function is missing
type FunctionNotFoundError struct {
	ModuleName   string
	FunctionName string
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("function '%s' not found in module '%s'",
		e.FunctionName, e.ModuleName)
}

// MemoryAccessError occurs when memory operations fail
type MemoryAccessError struct {
	Operation string
	Address   uint32
	Length    uint32
	Err       error
}

func (e *MemoryAccessError) Error() string {
	return fmt.Sprintf("memory access failed (op=%s, addr=%d, len=%d): %v",
		e.Operation, e.Address, e.Length, e.Err)
}

func (e *MemoryAccessError) Unwrap() error {
	return e.Err
}

// HostFunctionError occurs when host function execution fails
type HostFunctionError struct {
	FunctionName string
	Err          error
}

func (e *HostFunctionError) Error() string {
	return fmt.Sprintf("host function '%s' failed: %v", e.FunctionName, e.Err)
}

func (e *HostFunctionError) Unwrap() error {
	return e.Err
}

// BindgenThrowError carries the message a guest passed to __wbindgen_throw.
type BindgenThrowError struct {
	Message string
}

func (e *BindgenThrowError) Error() string {
	return fmt.Sprintf("guest threw: %s", e.Message)
}

// RuntimeClosedError is returned when loading through a closed runtime.
type RuntimeClosedError struct{}

func (e *RuntimeClosedError) Error() string {
	return "Wasm runtime is closed"
}
