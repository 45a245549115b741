package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvDataDir overrides the user-level data directory.
const EnvDataDir = "SCIVIEW_DATA_DIR"

// ProjectPaths captures canonical locations for a sciview workspace.
type ProjectPaths struct {
	Root       string
	ConfigFile string
	MetaDir    string
	LogsDir    string
}

// Resolve determines the project root using the optional --project flag or the
// current working directory when the flag is empty.
func Resolve(projectFlag string) (ProjectPaths, error) {
	var (
		root string
		err  error
	)

	if projectFlag != "" {
		root, err = filepath.Abs(projectFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("resolve project root: %w", err)
	}

	return newProjectPaths(root), nil
}

func newProjectPaths(root string) ProjectPaths {
	metaDir := filepath.Join(root, ".sciview")
	return ProjectPaths{
		Root:       root,
		ConfigFile: filepath.Join(root, "sciview.yaml"),
		MetaDir:    metaDir,
		LogsDir:    filepath.Join(metaDir, "logs"),
	}
}

// WithConfigFile points the paths at an explicit --config file. Relative
// paths are resolved against the project root.
func (p ProjectPaths) WithConfigFile(flag string) ProjectPaths {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return p
	}
	if filepath.IsAbs(flag) {
		p.ConfigFile = filepath.Clean(flag)
	} else {
		p.ConfigFile = filepath.Join(p.Root, flag)
	}
	return p
}

// EnsureMetaDirs creates the hidden .sciview metadata and logs directories.
func (p ProjectPaths) EnsureMetaDirs() error {
	for _, dir := range []string{p.MetaDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DataDir returns the user-level sciview directory, $SCIVIEW_DATA_DIR or
// ~/.sciview. It creates the directory if it does not exist.
func DataDir() (string, error) {
	return dataDir(os.Getenv, os.UserHomeDir)
}

func dataDir(getenv func(string) string, home func() (string, error)) (string, error) {
	dir := strings.TrimSpace(getenv(EnvDataDir))
	if dir == "" {
		h, err := home()
		if err != nil {
			return "", fmt.Errorf("detect user home: %w", err)
		}
		dir = filepath.Join(h, ".sciview")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}

// ManagedEnvDir returns the location of the sciview-managed Python
// environment. The environment itself may not exist yet.
func ManagedEnvDir() (string, error) {
	data, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(data, "python-env"), nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
