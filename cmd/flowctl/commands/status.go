package commands

import (
	"github.com/spf13/cobra"
)

// status: read every signal and print the workflow position.
func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active step and every step's state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := startApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeApp(c)

			view := c.Flow().Service.View()
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			return renderView(cmd.OutOrStdout(), view)
		},
	}
}
