package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("python:\n  path: /a/python\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	initial, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, initial, nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	w.SetDebounce(60 * time.Millisecond)

	changes := make(chan [2]Config, 4)
	if err := w.Start(context.Background(), func(prev, cur Config) { changes <- [2]Config{prev, cur} }); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	// Two quick writes collapse into one reload.
	_ = os.WriteFile(path, []byte("python:\n  path: /b/python\n"), 0o644)
	_ = os.WriteFile(path, []byte("python:\n  path: /c/python\n"), 0o644)

	select {
	case got := <-changes:
		if got[0].Python.Path != "/a/python" || got[1].Python.Path != "/c/python" {
			t.Fatalf("unexpected change %q -> %q", got[0].Python.Path, got[1].Python.Path)
		}
		if !got[0].PythonChanged(got[1]) {
			t.Fatal("expected python change")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	if w.Current().Python.Path != "/c/python" {
		t.Fatalf("current = %q", w.Current().Python.Path)
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	w, err := NewWatcher(path, Default(), nil)
	if err != nil {
		t.Fatal(err)
	}
	w.SetDebounce(30 * time.Millisecond)
	called := make(chan struct{}, 1)
	if err := w.Start(context.Background(), func(Config, Config) { called <- struct{}{} }); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	_ = os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o644)
	select {
	case <-called:
		t.Fatal("unrelated file must not trigger a reload")
	case <-time.After(300 * time.Millisecond):
	}
}
