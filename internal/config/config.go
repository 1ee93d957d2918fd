package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. WASMLOAD_WASM_ENABLE_WASI.
const EnvPrefix = "WASMLOAD"

type Config struct {
	LogLevel       string      `mapstructure:"log_level"`
	PackagePaths   []string    `mapstructure:"package_paths"`
	DefaultLocator string      `mapstructure:"default_locator"`
	Wasm           WasmConfig  `mapstructure:"wasm"`
	Fetch          FetchConfig `mapstructure:"fetch"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Keep DWARF based stack traces.
	Debug bool `mapstructure:"debug"`
	// Compilation cache directory, in-memory if empty.
	CacheDir string `mapstructure:"cache_dir"`
	// Maximum live instances, 0 for unlimited.
	MaxInstances int `mapstructure:"max_instances"`
	// Provide wasi_snapshot_preview1 to guests.
	EnableWASI bool `mapstructure:"enable_wasi"`
}

// FetchConfig holds module retrieval configuration.
type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxBytes  int64         `mapstructure:"max_bytes"`
	UserAgent string        `mapstructure:"user_agent"`
}

// Load reads configuration from defaults, the optional file at configPath
// and WASMLOAD_ environment variables, in increasing precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("package_paths", []string{"./packages"})
	v.SetDefault("default_locator", "web_bg.wasm")

	// Wasm defaults
	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.cache_dir", "")
	v.SetDefault("wasm.max_instances", 100)
	v.SetDefault("wasm.enable_wasi", false)

	// Fetch defaults
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.max_bytes", 64<<20)
	v.SetDefault("fetch.user_agent", "wasmload")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.Wasm.MemoryPages > 65536 {
		return fmt.Errorf("wasm.memory_pages must not exceed 65536, got %d", c.Wasm.MemoryPages)
	}
	if c.Wasm.MaxInstances < 0 {
		return fmt.Errorf("wasm.max_instances must not be negative, got %d", c.Wasm.MaxInstances)
	}
	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch.timeout must not be negative, got %s", c.Fetch.Timeout)
	}
	if c.Fetch.MaxBytes < 0 {
		return fmt.Errorf("fetch.max_bytes must not be negative, got %d", c.Fetch.MaxBytes)
	}
	return nil
}
