package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"sciview/internal/pyenv"
	"sciview/internal/tui"
)

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// writeEnvSummary prints the snapshot header used by the env commands.
func writeEnvSummary(out io.Writer, info pyenv.EnvironmentInfo) {
	state := string(info.State)
	fmt.Fprintf(out, "%-9s %s\n", "State:", tui.StatusStyle(state).Render(state))
	if info.Initialized {
		python := info.PathValue()
		if info.Version != "" {
			python = fmt.Sprintf("%s (%s)", info.Version, python)
		}
		fmt.Fprintf(out, "%-9s %s\n", "Python:", python)
		fmt.Fprintf(out, "%-9s %s\n", "Source:", info.SourceValue())
	}
	if len(info.MissingCore) > 0 {
		fmt.Fprintf(out, "%-9s %s\n", "Missing:", strings.Join(info.MissingCore, " "))
	}
	if info.Error != "" {
		fmt.Fprintf(out, "%-9s %s\n", "Error:", info.Error)
	}
	if info.Hint != "" {
		fmt.Fprintf(out, "%-9s %s\n", "Hint:", info.Hint)
	}
}

func envSummaryLine(info pyenv.EnvironmentInfo) string {
	switch info.State {
	case pyenv.StateReady:
		return "Environment ready: " + info.PathValue()
	case pyenv.StateReadyWithWarnings:
		return fmt.Sprintf("Environment ready with %d optional packages missing", len(info.MissingOptional))
	default:
		return "Environment not ready: " + info.Error
	}
}
