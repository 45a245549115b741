package pyenv

import (
	"errors"
	"sort"
	"time"
)

// Source records where an interpreter candidate was discovered.
type Source string

const (
	SourceOverride     Source = "override"
	SourceManaged      Source = "extension-env"
	SourceHostAPI      Source = "host-api"
	SourceDetectedVenv Source = "detected-venv"
	SourceSystem       Source = "system"
)

// InterpreterCandidate is a possible interpreter found during one resolution
// cycle.
type InterpreterCandidate struct {
	Path   string   `json:"path"`
	Source Source   `json:"source"`
	Valid  bool     `json:"valid"`
	Kind   VenvKind `json:"kind,omitempty"`
}

// PackageAvailabilityMap maps a Python package name to whether it can be
// imported by the interpreter.
type PackageAvailabilityMap map[string]bool

// Missing returns the names in names that are not available, in input order.
func (m PackageAvailabilityMap) Missing(names []string) []string {
	var missing []string
	for _, name := range names {
		if !m[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// Available returns the sorted names that are available.
func (m PackageAvailabilityMap) Available() []string {
	var names []string
	for name, ok := range m {
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// State is the readiness of the current interpreter.
type State string

const (
	StateNotInitialized    State = "not-initialized"
	StateInitializing      State = "initializing"
	StateReady             State = "ready"
	StateReadyWithWarnings State = "ready-with-warnings"
	StateError             State = "error"
)

// PackageSets splits required packages into the mandatory and nice-to-have
// tiers.
type PackageSets struct {
	Core     []string
	Optional []string
}

// All returns core followed by optional names without duplicates.
func (s PackageSets) All() []string {
	seen := make(map[string]bool, len(s.Core)+len(s.Optional))
	var all []string
	for _, group := range [][]string{s.Core, s.Optional} {
		for _, name := range group {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			all = append(all, name)
		}
	}
	return all
}

// EnvironmentInfo is the externally visible snapshot of the environment. A
// snapshot is never modified after it is published.
type EnvironmentInfo struct {
	Initialized     bool                   `json:"initialized"`
	Ready           bool                   `json:"ready"`
	Source          *Source                `json:"source"`
	Path            *string                `json:"path"`
	State           State                  `json:"state"`
	Version         string                 `json:"version,omitempty"`
	Packages        PackageAvailabilityMap `json:"packages,omitempty"`
	MissingCore     []string               `json:"missing_core,omitempty"`
	MissingOptional []string               `json:"missing_optional,omitempty"`
	Error           string                 `json:"error,omitempty"`
	Hint            string                 `json:"hint,omitempty"`
	ResolvedAt      time.Time              `json:"resolved_at,omitzero"`
	Err             error                  `json:"-"`
}

// PathValue returns the interpreter path or "".
func (i EnvironmentInfo) PathValue() string {
	if i.Path == nil {
		return ""
	}
	return *i.Path
}

// SourceValue returns the source tag or "".
func (i EnvironmentInfo) SourceValue() Source {
	if i.Source == nil {
		return ""
	}
	return *i.Source
}

var (
	// ErrNoInterpreterFound means every source in the resolution chain failed.
	ErrNoInterpreterFound = errors.New("no usable Python interpreter found")
	// ErrValidationTimeout means an interpreter did not answer --version in time.
	ErrValidationTimeout = errors.New("python interpreter validation timed out")
	// ErrCorePackageMissing means the interpreter lacks a mandatory package.
	ErrCorePackageMissing = errors.New("required Python packages are missing")
	// ErrEnvironmentNotReady is returned to data operations gated on readiness.
	ErrEnvironmentNotReady = errors.New("python environment is not ready")
)
