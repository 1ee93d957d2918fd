package wasm

import (
	"context"
	"errors"

	"github.com/tetratelabs/wazero/api"
)

var errOutOfRange = errors.New("out of range")

// Memory provides safe memory operations for Wasm module interaction.
//
// Only numbers cross the call boundary. Strings and byte slices travel
// through linear memory as (ptr, len) pairs, allocated with the module's
// __wbindgen_malloc and released with __wbindgen_free.
type Memory struct {
	mem    api.Memory
	handle *Handle
}

// NewMemory creates a memory helper without allocator access.
func NewMemory(module api.Module) *Memory {
	return &Memory{mem: module.Memory()}
}

// Size returns the current size in bytes.
func (m *Memory) Size() uint32 {
	return m.mem.Size()
}

// ReadBytes copies length bytes starting at ptr.
func (m *Memory) ReadBytes(ptr uint32, length uint32) ([]byte, error) {
	view, ok := m.mem.Read(ptr, length)
	if !ok {
		return nil, &MemoryAccessError{Operation: "read", Address: ptr, Length: length, Err: errOutOfRange}
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out, nil
}

// ReadString reads a (ptr, len) UTF-8 string.
func (m *Memory) ReadString(ptr uint32, length uint32) (string, error) {
	view, ok := m.mem.Read(ptr, length)
	if !ok {
		return "", &MemoryAccessError{Operation: "read", Address: ptr, Length: length, Err: errOutOfRange}
	}
	return string(view), nil
}

// Write copies data to ptr.
func (m *Memory) Write(ptr uint32, data []byte) error {
	if !m.mem.Write(ptr, data) {
		return &MemoryAccessError{Operation: "write", Address: ptr, Length: uint32(len(data)), Err: errOutOfRange}
	}
	return nil
}

// PassBytes allocates len(data) bytes in the guest, copies data there and
// returns the (ptr, len) pair to hand to an export.
func (m *Memory) PassBytes(ctx context.Context, data []byte) (uint32, uint32, error) {
	if m.handle == nil {
		return 0, 0, errors.New("memory is not attached to a handle")
	}

	length := uint32(len(data))
	res, err := m.handle.Call(ctx, MallocExport, api.EncodeU32(length), 1)
	if err != nil {
		return 0, 0, err
	}
	if len(res) != 1 {
		return 0, 0, &MemoryAccessError{Operation: "alloc", Length: length, Err: errors.New("allocator returned no pointer")}
	}

	ptr := api.DecodeU32(res[0])
	if err := m.Write(ptr, data); err != nil {
		return 0, 0, err
	}
	return ptr, length, nil
}

// PassString is PassBytes for strings.
func (m *Memory) PassString(ctx context.Context, s string) (uint32, uint32, error) {
	return m.PassBytes(ctx, []byte(s))
}

// Realloc resizes an allocation made by PassBytes.
func (m *Memory) Realloc(ctx context.Context, ptr, oldLength, newLength uint32) (uint32, error) {
	if m.handle == nil {
		return 0, errors.New("memory is not attached to a handle")
	}

	res, err := m.handle.Call(ctx, ReallocExport,
		api.EncodeU32(ptr), api.EncodeU32(oldLength), api.EncodeU32(newLength), 1)
	if err != nil {
		return 0, err
	}
	if len(res) != 1 {
		return 0, &MemoryAccessError{Operation: "realloc", Address: ptr, Length: newLength, Err: errors.New("allocator returned no pointer")}
	}
	return api.DecodeU32(res[0]), nil
}

// Free releases an allocation made by PassBytes. Older glue declares
// __wbindgen_free without the alignment parameter; both are supported.
func (m *Memory) Free(ctx context.Context, ptr, length uint32) error {
	if m.handle == nil {
		return errors.New("memory is not attached to a handle")
	}

	params := []uint64{api.EncodeU32(ptr), api.EncodeU32(length), 1}
	if def, ok := m.handle.defs[FreeExport]; ok {
		params = params[:min(len(def.ParamTypes()), len(params))]
	}
	_, err := m.handle.Call(ctx, FreeExport, params...)
	return err
}
