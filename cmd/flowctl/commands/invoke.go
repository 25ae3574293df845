package commands

import (
	"github.com/spf13/cobra"

	"github.com/garyjia/lottery-onboarding/internal/domain/step"
)

// next: run the active step and wait for it to confirm.
func nextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Run the active step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := startApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeApp(c)

			res, err := c.Flow().Service.InvokeActive(cmd.Context())
			if err != nil {
				return failure(c, err)
			}
			renderResult(cmd.OutOrStdout(), res)
			return renderView(cmd.OutOrStdout(), c.Flow().Service.View())
		},
	}
}

// invoke <step>: run a specific step, e.g. buy-ticket again.
func invokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invoke <step-id>",
		Short: "Run a step by id; repeatable steps may run again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := startApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeApp(c)

			res, err := c.Flow().Service.Invoke(cmd.Context(), step.ID(args[0]))
			if err != nil {
				return failure(c, err)
			}
			renderResult(cmd.OutOrStdout(), res)
			return renderView(cmd.OutOrStdout(), c.Flow().Service.View())
		},
	}
}
