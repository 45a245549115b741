package cli

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"sciview/internal/app"
	"sciview/internal/pyenv"
	"sciview/internal/tui"
)

var (
	envForce      bool
	envNoProgress bool
	envSave       bool
)

func newEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Inspect and manage the Python environment",
	}

	cmd.AddCommand(newEnvStatusCmd())
	cmd.AddCommand(newEnvInitCmd())
	cmd.AddCommand(newEnvInstallCmd())
	cmd.AddCommand(newEnvCreateCmd())

	return cmd
}

func newEnvStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Resolve the interpreter and report package availability",
		RunE:  runEnvStatus,
	}
}

func runEnvStatus(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	info, _ := a.Initialize(cmd.Context())
	if outputJSON {
		return writeJSON(cmd, info)
	}

	out := cmd.OutOrStdout()
	writeEnvSummary(out, info)
	if info.Initialized {
		fmt.Fprintln(out)
		fmt.Fprint(out, tui.PackageTableFromInfo(a.Manager().Packages(), info).Table())
	}
	return nil
}

func newEnvInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Python environment with live package probing",
		RunE:  runEnvInit,
	}

	cmd.Flags().BoolVar(&envForce, "force", false, "Discard the current state and re-resolve from scratch")
	cmd.Flags().BoolVar(&envNoProgress, "no-progress", false, "Disable the interactive progress table")

	return cmd
}

func runEnvInit(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	initialize := a.Initialize
	if envForce {
		initialize = a.ForceInitialize
	}

	outWriter := cmd.OutOrStdout()
	mode := tui.DetectMode(outWriter, envNoProgress, outputJSON)
	sets := a.Manager().Packages()

	var (
		info    pyenv.EnvironmentInfo
		initErr error
	)
	if mode == tui.ModeTUI {
		model := tui.NewPackageTable("Python environment", sets)
		err := tui.RunWithWork(outWriter, model, func(send func(tea.Msg)) (string, error) {
			a.SetProbeObserver(tui.NewProbeReporter(send))
			defer a.SetProbeObserver(nil)
			info, initErr = initialize(ctx)
			return envSummaryLine(info), nil
		})
		if err != nil {
			return err
		}
	} else {
		info, initErr = initialize(ctx)
	}

	switch mode {
	case tui.ModeJSON:
		if err := writeJSON(cmd, info); err != nil {
			return err
		}
	case tui.ModePlain:
		writeEnvSummary(outWriter, info)
		if info.Initialized {
			fmt.Fprintln(outWriter)
			fmt.Fprint(outWriter, tui.PackageTableFromInfo(sets, info).Table())
		}
	default:
		if info.Hint != "" {
			fmt.Fprintf(outWriter, "Hint: %s\n", info.Hint)
		}
	}
	return initErr
}

func newEnvInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install [package...]",
		Short: "Install packages into the resolved interpreter (default: all missing)",
		RunE:  runEnvInstall,
	}
}

func runEnvInstall(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	stop := startStatus(cmd, "Installing Python packages...")
	installed, info, err := a.InstallPackages(cmd.Context(), args)
	stop()

	var installErr *pyenv.InstallError
	if errors.As(err, &installErr) {
		if installErr.Hint != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Hint: %s\n", installErr.Hint)
		}
		return err
	}
	if err != nil && !errors.Is(err, pyenv.ErrCorePackageMissing) {
		return err
	}

	if outputJSON {
		return writeJSON(cmd, struct {
			Installed   []string              `json:"installed"`
			Environment pyenv.EnvironmentInfo `json:"environment"`
		}{Installed: installed, Environment: info})
	}

	out := cmd.OutOrStdout()
	if len(installed) == 0 {
		fmt.Fprintln(out, "Nothing to install.")
	} else {
		fmt.Fprintf(out, "Installed: %s\n", joinComma(installed))
	}
	writeEnvSummary(out, info)
	return err
}

func newEnvCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the sciview-managed Python environment and switch to it",
		RunE:  runEnvCreate,
	}

	cmd.Flags().BoolVar(&envSave, "save", false, "Persist python.use_managed_env in the config file")

	return cmd
}

func runEnvCreate(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	stop := startStatus(cmd, "Creating managed environment...")
	python, info, err := a.CreateManagedEnv(cmd.Context())
	stop()
	if python == "" {
		return err
	}

	if envSave {
		if saveErr := saveConfig(a); saveErr != nil {
			return saveErr
		}
	}

	if outputJSON {
		if jsonErr := writeJSON(cmd, struct {
			Python      string                `json:"python"`
			Environment pyenv.EnvironmentInfo `json:"environment"`
		}{Python: python, Environment: info}); jsonErr != nil {
			return jsonErr
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Managed environment: %s\n", a.ManagedEnv.Dir)
	writeEnvSummary(out, info)
	if !envSave {
		fmt.Fprintln(out, "Set python.use_managed_env: true in sciview.yaml (or pass --save) to keep using it.")
	}
	return err
}

func saveConfig(a *app.App) error {
	data, err := a.Config().Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(a.Paths.ConfigFile, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// startStatus shows a spinner on stderr when it is a terminal. The returned
// func stops it.
func startStatus(cmd *cobra.Command, message string) func() {
	errOut := cmd.ErrOrStderr()
	if outputJSON || !tui.IsTerminal(errOut) {
		return func() {}
	}
	sw := tui.NewStatusWriter(errOut, message)
	return sw.Stop
}
