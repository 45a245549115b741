package cli

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sciview/internal/dataset"
)

var (
	plotStyle   string
	plotOut     string
	plotTimeout time.Duration
)

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot <file> <variable> [type]",
		Short: "Render a variable to a PNG image",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  runPlot,
	}

	cmd.Flags().StringVar(&plotStyle, "style", "", "Matplotlib style (default: plot.style from config)")
	cmd.Flags().StringVar(&plotOut, "out", "", "Output PNG path (default: <file>-<variable>.png)")
	cmd.Flags().DurationVar(&plotTimeout, "timeout", 0, "Override plot.timeout for this request")

	return cmd
}

func runPlot(cmd *cobra.Command, args []string) error {
	file, variable := args[0], args[1]
	opts := dataset.PlotOptions{Style: plotStyle, Timeout: plotTimeout}
	if len(args) == 3 {
		opts.Type = args[2]
	}

	a, err := openReadyApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	stop := startStatus(cmd, fmt.Sprintf("Plotting %s...", variable))
	plot, err := a.Dataset().Plot(cmd.Context(), file, variable, opts)
	stop()
	if err != nil {
		return reportDataError(cmd, err)
	}

	png, err := base64.StdEncoding.DecodeString(plot.Data)
	if err != nil {
		return fmt.Errorf("decode plot: %w", err)
	}
	out := plotOut
	if out == "" {
		out = defaultPlotPath(file, variable)
	}
	if err := os.WriteFile(out, png, 0o644); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}

	if outputJSON {
		return writeJSON(cmd, struct {
			Output     string             `json:"output"`
			Bytes      int                `json:"bytes"`
			FormatInfo dataset.FormatInfo `json:"format_info"`
		}{Output: out, Bytes: len(png), FormatInfo: plot.FormatInfo})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", out, formatBytes(int64(len(png))))
	return nil
}

// defaultPlotPath names the image after the data file and variable, next
// to the data file.
func defaultPlotPath(file, variable string) string {
	base := filepath.Base(strings.TrimRight(file, `/\`))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, variable)
	return filepath.Join(filepath.Dir(strings.TrimRight(file, `/\`)), fmt.Sprintf("%s-%s.png", base, safe))
}
