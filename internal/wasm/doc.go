// Package wasm loads WebAssembly modules produced by wasm-bindgen and hands
// out handles to their exports.
//
// Guest contract
//
// Only numbers cross the call boundary. uint32 is used for pointers and
// lengths because WebAssembly uses a 32-bit linear memory. A guest may
// export:
//
//	run() -> ?               entry point called by Loader.Run
//	__wbindgen_malloc(len, align) -> ptr
//	__wbindgen_realloc(ptr, old, new, align) -> ptr
//	__wbindgen_free(ptr, len, align)
//	__wbindgen_start()       called at instantiation, as is _initialize
//
// and may import:
//
//	host.log_message(level, ptr, len)
//	__wbindgen_placeholder__.*          stubbed, __wbindgen_throw fails the call
//	__wbindgen_externref_xform__.*      stubbed
//	wasi_snapshot_preview1.*            when RuntimeConfig.EnableWASI is set
package wasm
