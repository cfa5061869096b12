package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/studyhall/solver/internal/poller"
)

var (
	watchInterval time.Duration
	watchBudget   time.Duration
	watchSolve    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <assignment-id>",
	Short: "Poll an assignment until its solution is ready",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid assignment id: %w", err)
		}

		c := newClient()
		if watchSolve {
			if _, err := c.Solve(cmd.Context(), id); err != nil {
				return err
			}
		}

		p := poller.New(c,
			poller.WithInterval(watchInterval),
			poller.WithBudget(watchBudget),
		)

		result, err := p.Watch(cmd.Context(), id)
		if err != nil {
			var failed *poller.ErrSolveFailed
			switch {
			case errors.Is(err, poller.ErrPollBudgetExceeded):
				return fmt.Errorf("%w; run 'solver reset %s' to retry", err, id)
			case errors.As(err, &failed):
				if result != nil && result.Assignment != nil {
					_ = printJSON(result.Assignment)
				}
				return err
			}
			return err
		}

		return printJSON(result.Solution)
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", poller.DefaultInterval, "Poll interval")
	watchCmd.Flags().DurationVar(&watchBudget, "budget", poller.DefaultBudget, "Maximum time to wait")
	watchCmd.Flags().BoolVar(&watchSolve, "solve", false, "Request a solve before watching")
}
