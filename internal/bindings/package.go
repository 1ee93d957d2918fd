package bindings

import (
	"time"

	"github.com/woxQAQ/wasmload/internal/wasm"
)

// Package is a loaded bindings package: its manifest and the compiled
// module the manifest points to.
type Package struct {
	// Manifest is the parsed package metadata
	Manifest *Manifest

	// Compiled is the compiled Wasm module
	Compiled *wasm.CompiledModule

	// LoadedAt is the timestamp when the package was loaded
	LoadedAt time.Time
}

// Name returns the package name.
func (p *Package) Name() string {
	return p.Manifest.Name
}

// Version returns the package version.
func (p *Package) Version() string {
	return p.Manifest.Version
}

// Exports returns the declared export names.
func (p *Package) Exports() []string {
	names := make([]string, len(p.Manifest.Exports))
	for i, exp := range p.Manifest.Exports {
		names[i] = exp.Name
	}
	return names
}

// Declares reports whether the manifest declares export name.
func (p *Package) Declares(name string) bool {
	for _, exp := range p.Manifest.Exports {
		if exp.Name == name {
			return true
		}
	}
	return false
}
