package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/deacon-dev/deacon/internal/output"
)

var readConfigurationCmd = &cobra.Command{
	Use:   "read-configuration",
	Short: "Print the fully merged and substituted devcontainer configuration",
	RunE:  runReadConfiguration,
}

func runReadConfiguration(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	resolution, err := resolveWorkspace(ctx)
	if err != nil {
		output.PrintError(err)
		return err
	}

	return output.JSON(resolution.Config)
}
