package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sciview/internal/app"
)

var (
	projectDir string
	configFile string
	outputJSON bool
)

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sciview",
		Short:         "Inspect scientific data files through a managed Python environment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&projectDir, "project", "", "Path to workspace directory")
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to sciview.yaml (default: <project>/sciview.yaml)")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")

	cmd.AddCommand(newEnvCmd())
	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newPlotCmd())
	cmd.AddCommand(newSliceCmd())
	cmd.AddCommand(newVersionsCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newDoctorCmd())

	return cmd
}

// openApp builds the session for a command from the persistent flags.
// appOptions is swapped by tests.
func openApp(cmd *cobra.Command) (*app.App, error) {
	opts := appOptions()
	opts.ProjectDir = projectDir
	opts.ConfigFile = configFile
	return app.New(cmd.Context(), opts)
}

var appOptions = func() app.Options { return app.Options{} }
