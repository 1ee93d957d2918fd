package bindings

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/woxQAQ/wasmload/internal/wasm"
)

// ManifestFile is the manifest name inside a package directory.
const ManifestFile = "bindings.yaml"

// Manifest represents the bindings.yaml structure: where the module lives
// and which exports its generated bindings rely on.
type Manifest struct {
	Name        string       `yaml:"name"`
	Version     string       `yaml:"version"`
	Description string       `yaml:"description,omitempty"`
	Wasm        WasmConfig   `yaml:"wasm"`
	Memory      string       `yaml:"memory,omitempty"`
	Exports     []ExportDecl `yaml:"exports"`

	// Internal fields
	dir string // Directory containing manifest
}

// WasmConfig holds Wasm module configuration. Exactly one of File and URL
// is set.
type WasmConfig struct {
	File string `yaml:"file,omitempty"`
	URL  string `yaml:"url,omitempty"`
	Size int    `yaml:"size,omitempty"` // KB
}

// ExportDecl is the declared signature of one exported function.
type ExportDecl struct {
	Name    string   `yaml:"name"`
	Params  []string `yaml:"params,flow"`
	Results []string `yaml:"results,flow"`
}

var validValueTypes = map[string]bool{
	"i32":       true,
	"i64":       true,
	"f32":       true,
	"f64":       true,
	"externref": true,
}

// ParseManifest reads and parses bindings.yaml from a directory.
func ParseManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, ManifestFile)

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &ManifestNotFoundError{
			Path: manifestPath,
			Err:  err,
		}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{
			Path: manifestPath,
			Err:  err,
		}
	}

	m.dir = dir

	// Validate manifest
	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest fields.
func (m *Manifest) Validate() error {
	// Check required fields
	if m.Name == "" {
		return m.invalid("name", "name is required")
	}

	if m.Version == "" {
		return m.invalid("version", "version is required")
	}

	switch {
	case m.Wasm.File == "" && m.Wasm.URL == "":
		return m.invalid("wasm", "one of wasm.file or wasm.url is required")
	case m.Wasm.File != "" && m.Wasm.URL != "":
		return m.invalid("wasm", "wasm.file and wasm.url are mutually exclusive")
	}

	if m.Wasm.URL != "" {
		u, err := url.Parse(m.Wasm.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return m.invalid("wasm.url", fmt.Sprintf("not an http(s) URL: %s", m.Wasm.URL))
		}
	}

	// Validate exports
	seen := make(map[string]bool, len(m.Exports))
	for i, exp := range m.Exports {
		field := fmt.Sprintf("exports[%d]", i)
		if exp.Name == "" {
			return m.invalid(field, "export name is required")
		}
		if seen[exp.Name] {
			return m.invalid(field, fmt.Sprintf("duplicate export: %s", exp.Name))
		}
		seen[exp.Name] = true

		for _, vt := range append(append([]string{}, exp.Params...), exp.Results...) {
			if !validValueTypes[vt] {
				return m.invalid(field, fmt.Sprintf("unknown value type: %s (must be one of: i32, i64, f32, f64, externref)", vt))
			}
		}
	}

	// Validate Wasm file exists
	if m.Wasm.File != "" {
		if _, err := os.Stat(m.WasmPath()); os.IsNotExist(err) {
			return &WasmNotFoundError{
				ManifestPath: m.Path(),
				WasmFile:     m.Wasm.File,
			}
		}
	}

	return nil
}

func (m *Manifest) invalid(field, message string) error {
	return &ManifestValidationError{
		Path:    m.Path(),
		Field:   field,
		Message: message,
	}
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, ManifestFile)
}

// WasmPath returns the path to the Wasm file, empty for remote modules.
func (m *Manifest) WasmPath() string {
	if m.Wasm.File == "" {
		return ""
	}
	return filepath.Join(m.dir, m.Wasm.File)
}

// Locator returns where the loader retrieves the module from.
func (m *Manifest) Locator() wasm.Locator {
	if m.Wasm.URL != "" {
		return wasm.Locator(m.Wasm.URL)
	}
	return wasm.Locator(m.WasmPath())
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}

// Marshal encodes m as bindings.yaml content.
func (m *Manifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}
