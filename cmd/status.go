package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

type statusReport struct {
	Suspended     bool               `json:"suspended"`
	LastRun       *engine.RunSummary `json:"last_run,omitempty"`
	Opportunities map[string]int     `json:"opportunities"`
}

// newStatusCmd creates the 'status' subcommand: scheduler state plus stored
// opportunity counts by status, against the configured store.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show scheduler state and stored opportunity counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			records, err := a.Store.List(cmd.Context(), engine.ListFilter{})
			if err != nil {
				return fmt.Errorf("list opportunities: %w", err)
			}
			counts := make(map[string]int, 3)
			for _, rec := range records {
				counts[string(rec.Status)]++
			}

			st := a.Scheduler.Status()
			report := statusReport{
				Suspended:     st.Suspended,
				LastRun:       st.LastRun,
				Opportunities: counts,
			}
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("encode status: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
