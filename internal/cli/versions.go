package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newVersionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "Print xarray.show_versions() for the resolved interpreter",
		RunE:  runVersions,
	}
}

func runVersions(cmd *cobra.Command, _ []string) error {
	a, err := openReadyApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	versions, err := a.Dataset().ShowVersions(cmd.Context())
	if err != nil {
		return reportDataError(cmd, err)
	}

	if outputJSON {
		return writeJSON(cmd, map[string]string{"versions": versions})
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(versions, "\n"))
	return nil
}
