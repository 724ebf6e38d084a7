package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newDeadlinesCmd creates the 'deadlines' subcommand: a single deadline sweep
// that closes expired opportunities and logs upcoming due dates.
func newDeadlinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deadlines",
		Short: "Run one deadline sweep and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Scheduler.TriggerDeadlineCheck(cmd.Context()); err != nil {
				return fmt.Errorf("deadline sweep: %w", err)
			}
			return nil
		},
	}
}
