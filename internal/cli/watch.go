package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"sciview/internal/app"
	"sciview/internal/config"
	"sciview/internal/panels"
	"sciview/internal/tui"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file...>",
		Short: "Keep files open and reload them when the environment or config changes",
		Long: "watch opens each file as a panel. Panels that fail are reloaded " +
			"automatically once the Python environment becomes ready, for example " +
			"after editing python settings in sciview.yaml or running " +
			"`sciview env install` in another terminal followed by a config save.",
		Args: cobra.MinimumNArgs(1),
		RunE: runWatch,
	}
}

// notifyContext is swapped by tests.
var notifyContext = signal.NotifyContext

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := notifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// The session scopes its background panel reloads to ctx, so it must be
	// opened with the signal context.
	cmd.SetContext(ctx)

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	return watchFiles(ctx, cmd.OutOrStdout(), a, args)
}

// syncWriter serializes panel output written from reload goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format, args...)
}

// watchFiles registers one panel per file, loads them once, and reloads the
// config on change until ctx is done.
func watchFiles(ctx context.Context, out io.Writer, a *app.App, files []string) error {
	w := &syncWriter{w: out}
	registerFilePanels(a, w, files)

	watcher, err := config.NewWatcher(a.Paths.ConfigFile, a.Config(), a.Logger)
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	getenv := appOptions().Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	err = watcher.Start(ctx, func(_, current config.Config) {
		current.ApplyEnv(getenv)
		w.Printf("config changed: %s\n", a.Paths.ConfigFile)
		reinit, err := a.Reload(ctx, current)
		if reinit {
			w.Printf("environment %s\n", a.Info().State)
		}
		if err != nil {
			a.Logger.WithError(err).Warn("environment re-initialization failed")
		}
	})
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer watcher.Stop()

	info, _ := a.Initialize(ctx)
	state := string(info.State)
	w.Printf("environment %s\n", tui.StatusStyle(state).Render(state))
	for _, p := range a.Panels.Panels() {
		_ = p.Load(ctx)
	}

	<-ctx.Done()
	return nil
}

func registerFilePanels(a *app.App, w *syncWriter, files []string) []*panels.Panel {
	out := make([]*panels.Panel, 0, len(files))
	for _, file := range files {
		p := a.Panels.Register(file, func(ctx context.Context) error {
			info, err := a.Dataset().Info(ctx, file)
			if err != nil {
				return err
			}
			w.Printf("%s: %s, %d groups\n", file, tui.NonEmptyOrDash(info.FormatInfo.DisplayName), len(info.Groups()))
			return nil
		})
		p.RegisterErrorCallback(
			func(err error) { w.Printf("%s: %v\n", file, err) },
			nil,
		)
		out = append(out, p)
	}
	return out
}
