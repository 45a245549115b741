package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sciview/internal/dataset"
)

// FileName is the project configuration file.
const FileName = "sciview.yaml"

// EnvPython overrides python.path.
const EnvPython = "SCIVIEW_PYTHON"

// Config captures interpreter selection and helper script settings for a
// project.
type Config struct {
	Version  int            `yaml:"version"`
	Python   PythonConfig   `yaml:"python"`
	Packages PackagesConfig `yaml:"packages"`
	Scripts  ScriptsConfig  `yaml:"scripts"`
	Plot     PlotConfig     `yaml:"plot"`
	Log      LogConfig      `yaml:"log"`
}

// PythonConfig selects the interpreter.
type PythonConfig struct {
	Path            string        `yaml:"path,omitempty"`
	UseManagedEnv   bool          `yaml:"use_managed_env"`
	AutoDetectVenvs *bool         `yaml:"auto_detect_venvs,omitempty"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout"`
	PackageTimeout  time.Duration `yaml:"package_timeout"`
}

// AutoDetectEnabled returns the effective auto-detect flag applying defaults.
func (p PythonConfig) AutoDetectEnabled() bool {
	if p.AutoDetectVenvs == nil {
		return true
	}
	return *p.AutoDetectVenvs
}

// PackagesConfig lists the packages probed on every initialization.
type PackagesConfig struct {
	Core     []string `yaml:"core"`
	Optional []string `yaml:"optional"`
}

// ScriptsConfig locates the helper scripts.
type ScriptsConfig struct {
	Dir string `yaml:"dir"`
}

// PlotConfig holds plot request defaults.
type PlotConfig struct {
	Style   string        `yaml:"style,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig controls the file logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Python: PythonConfig{
			AutoDetectVenvs: boolPtr(true),
			ProbeTimeout:    5 * time.Second,
			PackageTimeout:  10 * time.Second,
		},
		Packages: PackagesConfig{
			Core:     dataset.CorePackages(),
			Optional: dataset.OptionalPackages(),
		},
		Scripts: ScriptsConfig{
			Dir: "python",
		},
		Plot: PlotConfig{
			Timeout: dataset.DefaultPlotTimeout,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults when the
// YAML omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	c.Python.Path = strings.TrimSpace(c.Python.Path)
	if c.Python.AutoDetectVenvs == nil {
		c.Python.AutoDetectVenvs = boolPtr(true)
	}
	if c.Python.ProbeTimeout == 0 {
		c.Python.ProbeTimeout = defaults.Python.ProbeTimeout
	}
	if c.Python.PackageTimeout == 0 {
		c.Python.PackageTimeout = defaults.Python.PackageTimeout
	}
	if c.Packages.Core == nil {
		c.Packages.Core = defaults.Packages.Core
	}
	if c.Packages.Optional == nil {
		c.Packages.Optional = defaults.Packages.Optional
	}
	if c.Scripts.Dir == "" {
		c.Scripts.Dir = defaults.Scripts.Dir
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// ApplyEnv applies environment variable overrides. getenv is usually
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		return
	}
	if v := strings.TrimSpace(getenv(EnvPython)); v != "" {
		c.Python.Path = v
	}
}

// ScriptsDirPath resolves scripts.dir against the project root.
func (c Config) ScriptsDirPath(projectRoot string) string {
	if filepath.IsAbs(c.Scripts.Dir) {
		return c.Scripts.Dir
	}
	return filepath.Join(projectRoot, c.Scripts.Dir)
}

// PythonChanged reports whether interpreter selection or the probed package
// set differ between c and other.
func (c Config) PythonChanged(other Config) bool {
	if c.Python.Path != other.Python.Path ||
		c.Python.UseManagedEnv != other.Python.UseManagedEnv ||
		c.Python.AutoDetectEnabled() != other.Python.AutoDetectEnabled() ||
		c.Python.ProbeTimeout != other.Python.ProbeTimeout ||
		c.Python.PackageTimeout != other.Python.PackageTimeout {
		return true
	}
	return !slices.Equal(c.Packages.Core, other.Packages.Core) ||
		!slices.Equal(c.Packages.Optional, other.Packages.Optional)
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

func boolPtr(v bool) *bool {
	return &v
}
