package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"synolink/internal/protocol"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	RunE:  runVersion,
}

func runVersion(cmd *cobra.Command, _ []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), "synolink", protocol.ServerVersion)
	return nil
}
