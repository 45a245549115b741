package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"sciview/internal/pyenv"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate runs all validations against the config and returns structured
// results.
func (c Config) Validate(projectRoot string) []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validatePython()...)
	results = append(results, c.validatePackages()...)
	results = append(results, c.validateScripts(projectRoot)...)
	results = append(results, c.validatePlot()...)
	results = append(results, c.validateLog()...)
	return results
}

// HasErrors reports whether any result is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}

func (c Config) validatePython() []ValidationResult {
	var results []ValidationResult
	if path := c.Python.Path; path != "" && strings.ContainsAny(path, `/\`) {
		if info, err := os.Stat(path); err != nil {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("python.path %q not found", path),
			})
		} else if info.IsDir() {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("python.path %q is a directory; point it at the interpreter executable", path),
			})
		}
	}
	if c.Python.ProbeTimeout < 0 {
		results = append(results, ValidationResult{Level: "error", Message: "python.probe_timeout must be >= 0"})
	}
	if c.Python.PackageTimeout < 0 {
		results = append(results, ValidationResult{Level: "error", Message: "python.package_timeout must be >= 0"})
	}
	return results
}

func (c Config) validatePackages() []ValidationResult {
	var results []ValidationResult
	if len(c.Packages.Core) == 0 {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: "packages.core is empty; environments will be reported ready without xarray",
		})
	}

	core := make(map[string]bool, len(c.Packages.Core))
	for _, name := range c.Packages.Core {
		core[name] = true
	}
	for _, group := range []struct {
		key   string
		names []string
	}{{"packages.core", c.Packages.Core}, {"packages.optional", c.Packages.Optional}} {
		for _, name := range group.names {
			if _, ok := pyenv.PackageProbeScript(name); !ok {
				results = append(results, ValidationResult{
					Level:   "error",
					Message: fmt.Sprintf("%s: %q is not a valid module name", group.key, name),
				})
			}
		}
	}
	for _, name := range c.Packages.Optional {
		if core[name] {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("package %q is listed as both core and optional; it is treated as core", name),
			})
		}
	}
	return results
}

func (c Config) validateScripts(projectRoot string) []ValidationResult {
	dir := c.ScriptsDirPath(projectRoot)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return []ValidationResult{{
			Level:   "warning",
			Message: fmt.Sprintf("scripts.dir %q not found; info and plot will fail", filepath.ToSlash(c.Scripts.Dir)),
		}}
	}
	return nil
}

func (c Config) validatePlot() []ValidationResult {
	switch {
	case c.Plot.Timeout < 0:
		return []ValidationResult{{Level: "error", Message: "plot.timeout must be >= 0"}}
	case c.Plot.Timeout == 0:
		return []ValidationResult{{Level: "warning", Message: "plot.timeout is 0; plot requests only stop when cancelled"}}
	}
	return nil
}

func (c Config) validateLog() []ValidationResult {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return []ValidationResult{{
			Level:   "error",
			Message: fmt.Sprintf("log.level: %v", err),
		}}
	}
	return nil
}
