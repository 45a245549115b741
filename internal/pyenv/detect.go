package pyenv

import (
	"bufio"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// VenvKind identifies the tool that created a workspace environment.
type VenvKind string

const (
	VenvUV     VenvKind = "uv"
	VenvStd    VenvKind = "venv"
	VenvConda  VenvKind = "conda"
	VenvPipenv VenvKind = "pipenv"
	VenvPoetry VenvKind = "poetry"
)

var venvKindPriority = map[VenvKind]int{
	VenvUV:     0,
	VenvStd:    1,
	VenvConda:  2,
	VenvPipenv: 3,
	VenvPoetry: 4,
}

// DetectedVenv is a workspace environment with a present interpreter.
type DetectedVenv struct {
	Dir         string   `json:"dir"`
	Interpreter string   `json:"interpreter"`
	Kind        VenvKind `json:"kind"`
}

type venvMarker struct {
	name string
	// inProject means the interpreter lives in a .venv next to the marker
	// rather than in the marker's own directory.
	inProject bool
	kind      func(dir string) VenvKind
}

var venvMarkers = []venvMarker{
	{name: "pyvenv.cfg", kind: pyvenvKind},
	{name: "conda-meta", kind: func(string) VenvKind { return VenvConda }},
	{name: "Pipfile", inProject: true, kind: func(string) VenvKind { return VenvPipenv }},
	{name: "pyproject.toml", inProject: true, kind: func(string) VenvKind { return VenvPoetry }},
}

// DetectWorkspaceVenvs looks at each root and its direct subdirectories for
// environment markers colocated with an interpreter. Each directory yields at
// most one match; the result is ordered by kind priority, then discovery
// order.
func DetectWorkspaceVenvs(roots []string) []DetectedVenv {
	var found []DetectedVenv
	for _, root := range roots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		for _, dir := range candidateDirs(root) {
			if venv, ok := detectDir(dir); ok {
				found = append(found, venv)
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return venvKindPriority[found[i].Kind] < venvKindPriority[found[j].Kind]
	})

	// A project marker and the .venv below it can point at the same
	// interpreter; keep the better-ranked description.
	seen := map[string]bool{}
	unique := found[:0]
	for _, venv := range found {
		if seen[venv.Interpreter] {
			continue
		}
		seen[venv.Interpreter] = true
		unique = append(unique, venv)
	}
	return unique
}

func candidateDirs(root string) []string {
	dirs := []string{root}
	entries, err := os.ReadDir(root)
	if err != nil {
		return dirs
	}
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, filepath.Join(root, entry.Name()))
		}
	}
	return dirs
}

func detectDir(dir string) (DetectedVenv, bool) {
	for _, marker := range venvMarkers {
		if _, err := os.Stat(filepath.Join(dir, marker.name)); err != nil {
			continue
		}
		envDir := dir
		if marker.inProject {
			envDir = filepath.Join(dir, ".venv")
		}
		interpreter := findInterpreter(envDir)
		if interpreter == "" {
			continue
		}
		return DetectedVenv{Dir: envDir, Interpreter: interpreter, Kind: marker.kind(dir)}, true
	}
	return DetectedVenv{}, false
}

// pyvenvKind distinguishes uv-created environments, whose pyvenv.cfg carries
// a "uv = <version>" key, from stdlib venvs.
func pyvenvKind(dir string) VenvKind {
	f, err := os.Open(filepath.Join(dir, "pyvenv.cfg"))
	if err != nil {
		return VenvStd
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, _, ok := strings.Cut(scanner.Text(), "=")
		if ok && strings.TrimSpace(key) == "uv" {
			return VenvUV
		}
	}
	return VenvStd
}

// InterpreterPath returns the platform interpreter location inside an
// environment directory, whether or not it exists.
func InterpreterPath(envDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(envDir, "Scripts", "python.exe")
	}
	return filepath.Join(envDir, "bin", "python")
}

func findInterpreter(envDir string) string {
	candidates := []string{InterpreterPath(envDir)}
	if runtime.GOOS == "windows" {
		candidates = append(candidates, filepath.Join(envDir, "python.exe"))
	} else {
		candidates = append(candidates, filepath.Join(envDir, "bin", "python3"))
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
