package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sciview/internal/dataset"
)

var (
	sliceDim   string
	sliceStart int
	sliceStop  int
)

func newSliceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slice <file> <variable>",
		Short: "Print the values of a variable, optionally an index range of one dimension",
		Args:  cobra.ExactArgs(2),
		RunE:  runSlice,
	}

	cmd.Flags().StringVar(&sliceDim, "dim", "", "Dimension to slice along (default: whole variable)")
	cmd.Flags().IntVar(&sliceStart, "start", 0, "First index along --dim")
	cmd.Flags().IntVar(&sliceStop, "stop", 0, "Index after the last one along --dim")

	return cmd
}

func runSlice(cmd *cobra.Command, args []string) error {
	spec := dataset.SliceSpec{Dim: sliceDim, Start: sliceStart, Stop: sliceStop}
	if spec.Dim == "" && (cmd.Flags().Changed("start") || cmd.Flags().Changed("stop")) {
		return fmt.Errorf("--start and --stop require --dim")
	}

	a, err := openReadyApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	slice, err := a.Dataset().Slice(cmd.Context(), args[0], args[1], spec)
	if err != nil {
		return reportDataError(cmd, err)
	}

	if outputJSON {
		return writeJSON(cmd, slice)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Variable: %s\n", slice.Variable)
	fmt.Fprintf(out, "Dtype:    %s\n", slice.Dtype)
	fmt.Fprintf(out, "Shape:    (%s)\n", joinInts(slice.Shape))

	var compact bytes.Buffer
	if err := json.Compact(&compact, slice.Data); err != nil {
		compact.Reset()
		compact.Write(slice.Data)
	}
	fmt.Fprintln(out, compact.String())
	return nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
