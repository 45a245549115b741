package paths

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveUsesFlag(t *testing.T) {
	root := t.TempDir()
	pp, err := Resolve(root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if pp.Root != root {
		t.Fatalf("root = %s", pp.Root)
	}
	if pp.ConfigFile != filepath.Join(root, "sciview.yaml") {
		t.Fatalf("config = %s", pp.ConfigFile)
	}
	if pp.LogsDir != filepath.Join(root, ".sciview", "logs") {
		t.Fatalf("logs = %s", pp.LogsDir)
	}
}

func TestWithConfigFile(t *testing.T) {
	root := t.TempDir()
	pp := newProjectPaths(root)

	if got := pp.WithConfigFile("").ConfigFile; got != pp.ConfigFile {
		t.Fatalf("empty flag changed config to %s", got)
	}
	if got := pp.WithConfigFile("conf/alt.yaml").ConfigFile; got != filepath.Join(root, "conf", "alt.yaml") {
		t.Fatalf("relative config = %s", got)
	}
	abs := filepath.Join(t.TempDir(), "x.yaml")
	if got := pp.WithConfigFile(abs).ConfigFile; got != abs {
		t.Fatalf("absolute config = %s", got)
	}
}

func TestEnsureMetaDirs(t *testing.T) {
	pp := newProjectPaths(t.TempDir())
	if err := pp.EnsureMetaDirs(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if ok, err := DirExists(pp.LogsDir); err != nil || !ok {
		t.Fatalf("logs dir missing: %v", err)
	}
}

func TestDataDirOverride(t *testing.T) {
	override := filepath.Join(t.TempDir(), "data")
	dir, err := dataDir(func(key string) string {
		if key == EnvDataDir {
			return override
		}
		return ""
	}, func() (string, error) { return "", errors.New("no home") })
	if err != nil || dir != override {
		t.Fatalf("dataDir = %s, %v", dir, err)
	}
	if ok, _ := DirExists(override); !ok {
		t.Fatal("expected data dir to be created")
	}

	home := t.TempDir()
	dir, err = dataDir(func(string) string { return "" }, func() (string, error) { return home, nil })
	if err != nil || dir != filepath.Join(home, ".sciview") {
		t.Fatalf("dataDir = %s, %v", dir, err)
	}
}

func TestFileAndDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, _ := FileExists(file); !ok {
		t.Fatal("expected file to exist")
	}
	if ok, _ := FileExists(dir); ok {
		t.Fatal("directory is not a regular file")
	}
	if ok, _ := DirExists(filepath.Join(dir, "missing")); ok {
		t.Fatal("missing dir reported present")
	}
}
