package bindings

import (
	"fmt"
	"strings"
)

// ManifestNotFoundError occurs when bindings.yaml is not found in a directory.
type ManifestNotFoundError struct {
	Path string
	Err  error
}

func (e *ManifestNotFoundError) Error() string {
	return fmt.Sprintf("manifest not found at '%s': %v", e.Path, e.Err)
}

func (e *ManifestNotFoundError) Unwrap() error {
	return e.Err
}

// ManifestParseError occurs when bindings.yaml cannot be parsed as valid YAML.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse manifest at '%s': %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// ManifestValidationError occurs when bindings.yaml fails validation.
type ManifestValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ManifestValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("manifest validation failed at '%s': %s (field: %s)",
			e.Path, e.Message, e.Field)
	}
	return fmt.Sprintf("manifest validation failed at '%s': %s", e.Path, e.Message)
}

// WasmNotFoundError occurs when the Wasm file referenced in manifest doesn't exist.
type WasmNotFoundError struct {
	ManifestPath string
	WasmFile     string
}

func (e *WasmNotFoundError) Error() string {
	return fmt.Sprintf("Wasm file '%s' not found (referenced in manifest '%s')",
		e.WasmFile, e.ManifestPath)
}

// ExportMismatchError lists the declared exports a module does not provide
// as declared.
type ExportMismatchError struct {
	PackageName string
	Mismatches  []Mismatch
}

func (e *ExportMismatchError) Error() string {
	parts := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		parts[i] = m.String()
	}
	return fmt.Sprintf("package '%s' does not match its bindings: %s",
		e.PackageName, strings.Join(parts, "; "))
}

// PackageLoadError occurs when package loading fails.
type PackageLoadError struct {
	PackageName string
	Err         error
}

func (e *PackageLoadError) Error() string {
	return fmt.Sprintf("failed to load package '%s': %v", e.PackageName, e.Err)
}

func (e *PackageLoadError) Unwrap() error {
	return e.Err
}

// PackageNotFoundError occurs when a package is not found in the registry.
type PackageNotFoundError struct {
	PackageName string
}

func (e *PackageNotFoundError) Error() string {
	return fmt.Sprintf("package '%s' not found", e.PackageName)
}

// PackageAlreadyRegisteredError occurs when attempting to register a duplicate package.
type PackageAlreadyRegisteredError struct {
	PackageName string
}

func (e *PackageAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("package '%s' is already registered", e.PackageName)
}

// NoPackagesFoundError occurs when no packages are found in the configured paths.
type NoPackagesFoundError struct {
	Paths []string
}

func (e *NoPackagesFoundError) Error() string {
	return fmt.Sprintf("no packages found in paths: %v", e.Paths)
}
