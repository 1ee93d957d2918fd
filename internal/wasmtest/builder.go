// Package wasmtest assembles small WebAssembly binaries for tests.
//
// Only the subset of the binary format the loader tests need is supported:
// function types, function imports, one memory, mutable i32 globals,
// function and memory exports, code and active data segments.
package wasmtest

// Value types.
const (
	I32 byte = 0x7f
	I64 byte = 0x7e
	F32 byte = 0x7d
	F64 byte = 0x7c
)

// Opcodes used by the canned modules.
const (
	OpUnreachable byte = 0x00
	OpEnd         byte = 0x0b
	OpCall        byte = 0x10
	OpLocalGet    byte = 0x20
	OpGlobalGet   byte = 0x23
	OpGlobalSet   byte = 0x24
	OpI32Const    byte = 0x41
	OpI32Add      byte = 0x6a
)

var header = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// FuncType is a function signature.
type FuncType struct {
	Params  []byte
	Results []byte
}

type importedFunc struct {
	module, name string
	typeIdx      uint32
}

type definedFunc struct {
	typeIdx uint32
	body    []byte
}

type export struct {
	name string
	kind byte
	idx  uint32
}

type dataSegment struct {
	offset int32
	data   []byte
}

// Builder accumulates module sections. Imports must be declared before any
// function is defined so that function indices stay stable.
type Builder struct {
	types   []FuncType
	imports []importedFunc
	funcs   []definedFunc
	memory  *uint32
	globals []int32
	exports []export
	data    []dataSegment
}

// New returns an empty module builder.
func New() *Builder {
	return &Builder{}
}

func (b *Builder) typeIndex(t FuncType) uint32 {
	b.types = append(b.types, t)
	return uint32(len(b.types) - 1)
}

// ImportFunc declares a function import and returns its function index.
func (b *Builder) ImportFunc(module, name string, t FuncType) uint32 {
	if len(b.funcs) > 0 {
		panic("wasmtest: imports must be declared before functions")
	}
	b.imports = append(b.imports, importedFunc{module: module, name: name, typeIdx: b.typeIndex(t)})
	return uint32(len(b.imports) - 1)
}

// Func defines a function without locals. body holds the instructions and
// must end with OpEnd.
func (b *Builder) Func(t FuncType, body ...byte) uint32 {
	b.funcs = append(b.funcs, definedFunc{typeIdx: b.typeIndex(t), body: body})
	return uint32(len(b.imports) + len(b.funcs) - 1)
}

// ExportFunc exports the function at idx under name.
func (b *Builder) ExportFunc(name string, idx uint32) *Builder {
	b.exports = append(b.exports, export{name: name, kind: 0x00, idx: idx})
	return b
}

// Memory declares a memory with the given minimum pages. A non-empty
// exportName exports it.
func (b *Builder) Memory(pages uint32, exportName string) *Builder {
	b.memory = &pages
	if exportName != "" {
		b.exports = append(b.exports, export{name: exportName, kind: 0x02, idx: 0})
	}
	return b
}

// GlobalI32 declares a mutable i32 global and returns its index.
func (b *Builder) GlobalI32(init int32) uint32 {
	b.globals = append(b.globals, init)
	return uint32(len(b.globals) - 1)
}

// Data places bytes at offset in memory 0.
func (b *Builder) Data(offset int32, data []byte) *Builder {
	b.data = append(b.data, dataSegment{offset: offset, data: data})
	return b
}

// Bytes encodes the module.
func (b *Builder) Bytes() []byte {
	out := append([]byte{}, header...)

	if len(b.types) > 0 {
		var sec []byte
		sec = appendU32(sec, uint32(len(b.types)))
		for _, t := range b.types {
			sec = append(sec, 0x60)
			sec = appendU32(sec, uint32(len(t.Params)))
			sec = append(sec, t.Params...)
			sec = appendU32(sec, uint32(len(t.Results)))
			sec = append(sec, t.Results...)
		}
		out = appendSection(out, 1, sec)
	}

	if len(b.imports) > 0 {
		var sec []byte
		sec = appendU32(sec, uint32(len(b.imports)))
		for _, imp := range b.imports {
			sec = appendName(sec, imp.module)
			sec = appendName(sec, imp.name)
			sec = append(sec, 0x00)
			sec = appendU32(sec, imp.typeIdx)
		}
		out = appendSection(out, 2, sec)
	}

	if len(b.funcs) > 0 {
		var sec []byte
		sec = appendU32(sec, uint32(len(b.funcs)))
		for _, f := range b.funcs {
			sec = appendU32(sec, f.typeIdx)
		}
		out = appendSection(out, 3, sec)
	}

	if b.memory != nil {
		var sec []byte
		sec = appendU32(sec, 1)
		sec = append(sec, 0x00)
		sec = appendU32(sec, *b.memory)
		out = appendSection(out, 5, sec)
	}

	if len(b.globals) > 0 {
		var sec []byte
		sec = appendU32(sec, uint32(len(b.globals)))
		for _, g := range b.globals {
			sec = append(sec, I32, 0x01, OpI32Const)
			sec = appendI32(sec, g)
			sec = append(sec, OpEnd)
		}
		out = appendSection(out, 6, sec)
	}

	if len(b.exports) > 0 {
		var sec []byte
		sec = appendU32(sec, uint32(len(b.exports)))
		for _, e := range b.exports {
			sec = appendName(sec, e.name)
			sec = append(sec, e.kind)
			sec = appendU32(sec, e.idx)
		}
		out = appendSection(out, 7, sec)
	}

	if len(b.funcs) > 0 {
		var sec []byte
		sec = appendU32(sec, uint32(len(b.funcs)))
		for _, f := range b.funcs {
			// Zero local declarations followed by the body.
			code := append([]byte{0x00}, f.body...)
			sec = appendU32(sec, uint32(len(code)))
			sec = append(sec, code...)
		}
		out = appendSection(out, 10, sec)
	}

	if len(b.data) > 0 {
		var sec []byte
		sec = appendU32(sec, uint32(len(b.data)))
		for _, d := range b.data {
			sec = append(sec, 0x00, OpI32Const)
			sec = appendI32(sec, d.offset)
			sec = append(sec, OpEnd)
			sec = appendU32(sec, uint32(len(d.data)))
			sec = append(sec, d.data...)
		}
		out = appendSection(out, 11, sec)
	}

	return out
}

func appendSection(out []byte, id byte, contents []byte) []byte {
	out = append(out, id)
	out = appendU32(out, uint32(len(contents)))
	return append(out, contents...)
}

func appendName(out []byte, s string) []byte {
	out = appendU32(out, uint32(len(s)))
	return append(out, s...)
}

// appendU32 appends v as unsigned LEB128.
func appendU32(out []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		out = append(out, c)
		if v == 0 {
			return out
		}
	}
}

// appendI32 appends v as signed LEB128.
func appendI32(out []byte, v int32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0)
		if !done {
			c |= 0x80
		}
		out = append(out, c)
		if done {
			return out
		}
	}
}

// I32Const encodes an i32.const instruction.
func I32Const(v int32) []byte {
	return appendI32([]byte{OpI32Const}, v)
}

// Call encodes a call instruction.
func Call(idx uint32) []byte {
	return appendU32([]byte{OpCall}, idx)
}

// Concat joins instruction fragments.
func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
