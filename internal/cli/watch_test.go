package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sciview/internal/app"
	"sciview/internal/config"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWatchReloadsPanelsAfterConfigFix(t *testing.T) {
	fake := newFakePython("xarray", "matplotlib", "netCDF4")
	fake.info = airInfo
	broken := strings.Replace(testConfig, pythonPlaceholder, "/missing/python", 1)
	root := setupWorkspace(t, broken, fake)

	opts := appOptions()
	opts.ProjectDir = root
	a, err := app.New(context.Background(), opts)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	out := &bytes.Buffer{}
	done := make(chan error, 1)
	go func() { done <- watchFiles(ctx, out, a, []string{"air.nc"}) }()

	waitFor(t, "the panel to fail", func() bool {
		ps := a.Panels.Panels()
		return len(ps) == 1 && ps[0].Errored()
	})

	fixed := strings.Replace(testConfig, pythonPlaceholder, fake.path, 1)
	if err := os.WriteFile(filepath.Join(root, config.FileName), []byte(fixed), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	waitFor(t, "the panel to reload", func() bool {
		return !a.Panels.Panels()[0].Errored()
	})
	if got := a.Info().PathValue(); got != fake.path {
		t.Fatalf("environment path = %q, want %q", got, fake.path)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch returned error: %v", err)
	}
	for _, want := range []string{"config changed", "air.nc: NetCDF, 1 groups"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in output, got %q", want, out.String())
		}
	}
}

type signalScope struct{}

func TestWatchScopesReloadsToSignalContext(t *testing.T) {
	fake := newFakePython("xarray", "matplotlib", "netCDF4")
	fake.info = airInfo
	broken := strings.Replace(testConfig, pythonPlaceholder, "/missing/python", 1)
	root := setupWorkspace(t, broken, fake)

	prevNotify := notifyContext
	t.Cleanup(func() { notifyContext = prevNotify })
	stopWatch := make(chan context.CancelFunc, 1)
	notifyContext = func(parent context.Context, _ ...os.Signal) (context.Context, context.CancelFunc) {
		ctx, cancel := context.WithCancel(context.WithValue(parent, signalScope{}, true))
		stopWatch <- cancel
		return ctx, cancel
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := execute(newWatchCmd(), "air.nc")
		done <- err
	}()
	cancel := <-stopWatch

	// The first interpreter probe runs after the config watcher started.
	waitFor(t, "the first initialization", func() bool {
		calls, _ := fake.snapshot()
		return calls > 0
	})

	fixed := strings.Replace(testConfig, pythonPlaceholder, fake.path, 1)
	if err := os.WriteFile(filepath.Join(root, config.FileName), []byte(fixed), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	waitFor(t, "the panel reload", func() bool {
		_, ctxs := fake.snapshot()
		return len(ctxs) > 0
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after the signal context was cancelled")
	}

	_, ctxs := fake.snapshot()
	for _, ctx := range ctxs {
		if ctx.Value(signalScope{}) == nil {
			t.Fatal("panel reload ran outside the signal context")
		}
		if ctx.Err() == nil {
			t.Fatal("panel reload context must be cancelled with the watch")
		}
	}
}
