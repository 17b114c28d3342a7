package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"propsheet-service/internal/app"
	"propsheet-service/internal/config"
)

// NewPlacementCmd prints the placement of one submission as JSON.
func NewPlacementCmd(cfg *config.Config) *cobra.Command {
	var sheetID, submissionID string
	cmd := &cobra.Command{
		Use:   "placement",
		Short: "Print a submission's placement within its sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackends(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			defer b.close()

			placement, err := app.NewRankingService(b.sheetRepository(*cfg)).Placement(cmd.Context(), sheetID, submissionID)
			if err != nil {
				return err
			}
			out, err := json.Marshal(placement)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&sheetID, "sheet", "", "sheet id")
	cmd.Flags().StringVar(&submissionID, "submission", "", "submission id")
	_ = cmd.MarkFlagRequired("sheet")
	_ = cmd.MarkFlagRequired("submission")
	return cmd
}
