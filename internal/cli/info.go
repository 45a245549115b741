package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sciview/internal/app"
	"sciview/internal/dataset"
	"sciview/internal/tui"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Show dimensions, variables and attributes of a data file",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}
}

func runInfo(cmd *cobra.Command, args []string) error {
	a, err := openReadyApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	info, err := a.Dataset().Info(cmd.Context(), args[0])
	if err != nil {
		return reportDataError(cmd, err)
	}

	if outputJSON {
		return writeJSON(cmd, info)
	}
	writeFileInfo(cmd.OutOrStdout(), args[0], info)
	return nil
}

// openReadyApp opens the session and runs the first initialization so data
// operations see a settled state. Initialization failures surface through
// the data operation itself.
func openReadyApp(cmd *cobra.Command) (*app.App, error) {
	a, err := openApp(cmd)
	if err != nil {
		return nil, err
	}
	_, _ = a.Initialize(cmd.Context())
	return a, nil
}

// reportDataError prints the helper script's suggestion, if any, before
// returning err.
func reportDataError(cmd *cobra.Command, err error) error {
	var scriptErr *dataset.ScriptError
	if errors.As(err, &scriptErr) && scriptErr.Suggestion != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Hint: %s\n", scriptErr.Suggestion)
	}
	return err
}

func writeFileInfo(out io.Writer, file string, info dataset.FileInfo) {
	fmt.Fprintf(out, "File:    %s\n", file)
	fmt.Fprintf(out, "Format:  %s (engine %s)\n", tui.NonEmptyOrDash(info.FormatInfo.DisplayName), tui.NonEmptyOrDash(info.UsedEngine))
	fmt.Fprintf(out, "Size:    %s\n", formatBytes(info.FileSize))

	for _, group := range info.Groups() {
		fmt.Fprintf(out, "\nGroup %s\n", group)

		dims := info.Dimensions[group]
		names := make([]string, 0, len(dims))
		for name := range dims {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%d", name, dims[name]))
		}
		fmt.Fprintf(out, "  Dimensions: %s\n", tui.NonEmptyOrDash(strings.Join(parts, ", ")))

		w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "  KIND\tNAME\tDTYPE\tDIMS\tSIZE")
		for _, v := range info.Coordinates[group] {
			writeVariableRow(w, "coord", v)
		}
		for _, v := range info.Variables[group] {
			writeVariableRow(w, "var", v)
		}
		w.Flush()
	}
}

func writeVariableRow(w io.Writer, kind string, v dataset.VariableInfo) {
	fmt.Fprintf(w, "  %s\t%s\t%s\t(%s)\t%s\n",
		kind,
		v.Name,
		tui.NonEmptyOrDash(v.Dtype),
		strings.Join(v.Dimensions, ", "),
		formatBytes(v.SizeBytes),
	)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
