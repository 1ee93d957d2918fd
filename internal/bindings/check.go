package bindings

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/woxQAQ/wasmload/internal/wasm"
)

// Mismatch is one declared export the module does not provide as declared.
type Mismatch struct {
	Export   string
	Declared string
	Actual   string // empty if the export is missing
}

func (m Mismatch) String() string {
	if m.Actual == "" {
		return fmt.Sprintf("%s: missing, declared %s", m.Export, m.Declared)
	}
	return fmt.Sprintf("%s: has %s, declared %s", m.Export, m.Actual, m.Declared)
}

// Signature formats a function signature as "(i32, i32) -> (i32)".
func Signature(params, results []string) string {
	return "(" + strings.Join(params, ", ") + ") -> (" + strings.Join(results, ", ") + ")"
}

func valueTypeNames(types []api.ValueType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return names
}

// Check compares the declared exports of m with the exports of compiled.
// Exports the manifest does not mention are ignored.
func Check(m *Manifest, compiled *wasm.CompiledModule) []Mismatch {
	funcs := compiled.Module.ExportedFunctions()

	var mismatches []Mismatch
	for _, decl := range m.Exports {
		declared := Signature(decl.Params, decl.Results)

		def, ok := funcs[decl.Name]
		if !ok {
			mismatches = append(mismatches, Mismatch{Export: decl.Name, Declared: declared})
			continue
		}

		actual := Signature(valueTypeNames(def.ParamTypes()), valueTypeNames(def.ResultTypes()))
		if actual != declared {
			mismatches = append(mismatches, Mismatch{Export: decl.Name, Declared: declared, Actual: actual})
		}
	}

	if m.Memory != "" {
		if _, ok := compiled.Module.ExportedMemories()[m.Memory]; !ok {
			mismatches = append(mismatches, Mismatch{Export: m.Memory, Declared: "memory"})
		}
	}

	return mismatches
}

// GenerateManifest derives a manifest declaring every export of compiled.
func GenerateManifest(name, version string, wasmFile string, compiled *wasm.CompiledModule) *Manifest {
	m := &Manifest{
		Name:    name,
		Version: version,
		Wasm: WasmConfig{
			File: wasmFile,
			Size: int((compiled.SizeBytes + 1023) / 1024),
		},
	}

	funcs := compiled.Module.ExportedFunctions()
	for _, exportName := range compiled.Exports() {
		def := funcs[exportName]
		m.Exports = append(m.Exports, ExportDecl{
			Name:    exportName,
			Params:  valueTypeNames(def.ParamTypes()),
			Results: valueTypeNames(def.ResultTypes()),
		})
	}

	mems := compiled.Module.ExportedMemories()
	memNames := make([]string, 0, len(mems))
	for memName := range mems {
		memNames = append(memNames, memName)
	}
	sort.Strings(memNames)
	if len(memNames) > 0 {
		m.Memory = memNames[0]
	}

	return m
}
