package wasmtest

// Import module names of the wasm-bindgen glue.
const (
	BindgenModule   = "__wbindgen_placeholder__"
	ExternrefModule = "__wbindgen_externref_xform__"
)

// HeapBase is where the bump allocator of AllocatorModule starts.
const HeapBase = 1024

// MessageOffset is where canned modules place their data segment.
const MessageOffset = 16

// RunModule exports a one page memory and a zero-argument "run" returning ret.
func RunModule(ret int32) []byte {
	b := New().Memory(1, "memory")
	run := b.Func(FuncType{Results: []byte{I32}}, Concat(I32Const(ret), []byte{OpEnd})...)
	return b.ExportFunc("run", run).Bytes()
}

// TrapModule exports a "run" that hits unreachable.
func TrapModule() []byte {
	b := New().Memory(1, "memory")
	run := b.Func(FuncType{}, OpUnreachable, OpEnd)
	return b.ExportFunc("run", run).Bytes()
}

// NoMemoryModule exports functions but no memory.
func NoMemoryModule() []byte {
	b := New()
	one := b.Func(FuncType{Results: []byte{I32}}, Concat(I32Const(1), []byte{OpEnd})...)
	two := b.Func(FuncType{Params: []byte{I32}, Results: []byte{I32}}, OpLocalGet, 0x00, OpEnd)
	return b.ExportFunc("one", one).ExportFunc("identity", two).Bytes()
}

// AllocatorModule mimics the wasm-bindgen allocator exports with a bump
// allocator starting at HeapBase. It also imports a bindgen describe hook,
// called by "describe".
func AllocatorModule() []byte {
	b := New()
	describe := b.ImportFunc(BindgenModule, "__wbindgen_describe", FuncType{Params: []byte{I32}})
	b.Memory(1, "memory")
	heap := byte(b.GlobalI32(HeapBase))

	malloc := b.Func(
		FuncType{Params: []byte{I32, I32}, Results: []byte{I32}},
		OpGlobalGet, heap,
		OpGlobalGet, heap,
		OpLocalGet, 0x00,
		OpI32Add,
		OpGlobalSet, heap,
		OpEnd,
	)
	free := b.Func(FuncType{Params: []byte{I32, I32, I32}}, OpEnd)
	callDescribe := b.Func(FuncType{}, Concat(I32Const(1), Call(describe), []byte{OpEnd})...)
	run := b.Func(FuncType{Results: []byte{I32}}, Concat(I32Const(7), []byte{OpEnd})...)

	return b.
		ExportFunc("__wbindgen_malloc", malloc).
		ExportFunc("__wbindgen_free", free).
		ExportFunc("describe", callDescribe).
		ExportFunc("run", run).
		Bytes()
}

// ThrowModule exports a "run" that passes msg to __wbindgen_throw.
func ThrowModule(msg string) []byte {
	b := New()
	throw := b.ImportFunc(BindgenModule, "__wbindgen_throw", FuncType{Params: []byte{I32, I32}})
	b.Memory(1, "memory").Data(MessageOffset, []byte(msg))
	run := b.Func(
		FuncType{Results: []byte{I32}},
		Concat(I32Const(MessageOffset), I32Const(int32(len(msg))), Call(throw), I32Const(0), []byte{OpEnd})...,
	)
	return b.ExportFunc("run", run).Bytes()
}

// LogModule exports a "run" that logs msg at level through host.log_message.
func LogModule(level int32, msg string) []byte {
	b := New()
	logMessage := b.ImportFunc("host", "log_message", FuncType{Params: []byte{I32, I32, I32}})
	b.Memory(1, "memory").Data(MessageOffset, []byte(msg))
	run := b.Func(
		FuncType{},
		Concat(I32Const(level), I32Const(MessageOffset), I32Const(int32(len(msg))), Call(logMessage), []byte{OpEnd})...,
	)
	return b.ExportFunc("run", run).Bytes()
}

// UnresolvedImportModule imports a function nothing provides.
func UnresolvedImportModule() []byte {
	b := New()
	b.ImportFunc("env", "missing", FuncType{})
	run := b.Func(FuncType{}, OpEnd)
	return b.ExportFunc("run", run).Bytes()
}

// StartModule exports __wbindgen_start, which flips a global read by "started".
func StartModule() []byte {
	b := New()
	flag := byte(b.GlobalI32(0))
	start := b.Func(FuncType{}, Concat(I32Const(1), []byte{OpGlobalSet, flag, OpEnd})...)
	started := b.Func(FuncType{Results: []byte{I32}}, OpGlobalGet, flag, OpEnd)
	return b.
		ExportFunc("__wbindgen_start", start).
		ExportFunc("started", started).
		Bytes()
}

// WASIModule imports wasi_snapshot_preview1.sched_yield and returns its errno from "run".
func WASIModule() []byte {
	b := New()
	yield := b.ImportFunc("wasi_snapshot_preview1", "sched_yield", FuncType{Results: []byte{I32}})
	b.Memory(1, "memory")
	run := b.Func(FuncType{Results: []byte{I32}}, Concat(Call(yield), []byte{OpEnd})...)
	return b.ExportFunc("run", run).Bytes()
}
