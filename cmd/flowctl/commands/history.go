package commands

import (
	"github.com/spf13/cobra"

	"github.com/garyjia/lottery-onboarding/internal/application/service"
	"github.com/garyjia/lottery-onboarding/internal/container"
	"github.com/garyjia/lottery-onboarding/internal/domain/entity"
)

// history: list recorded step executions.
func historyCmd() *cobra.Command {
	var (
		stepID string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded step executions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := container.ProvideDatabase(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Conn.Close()

			var records []*entity.ExecutionRecord
			if stepID == "" {
				records, err = db.History.List(cmd.Context(), limit)
			} else {
				records, err = db.History.ListByStep(cmd.Context(), stepID, limit)
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			return renderHistory(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().StringVar(&stepID, "step", "", "only this step id")
	cmd.Flags().IntVarP(&limit, "limit", "n", service.DefaultHistoryLimit, "maximum records")
	return cmd
}
