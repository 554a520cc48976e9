package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GregMSThompson/utilization-pilot/internal/utilization"
	"github.com/GregMSThompson/utilization-pilot/pkg/helpers"
)

type closeDateResult struct {
	CloseDate      string `json:"closeDate"`
	DaysUntilClose int    `json:"daysUntilClose"`
	Estimated      bool   `json:"estimated"`
}

func newCloseDateCommand() *cobra.Command {
	var last string
	var flags engineFlags

	cmd := &cobra.Command{
		Use:   "close-date",
		Short: "Estimate the next statement close date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lastDate, err := helpers.ParseDate(last)
			if err != nil {
				return fmt.Errorf("invalid --last %q: want YYYY-MM-DD", last)
			}
			now, err := parseNow(flags.now)
			if err != nil {
				return err
			}
			engine, err := flags.engine()
			if err != nil {
				return err
			}

			closeDate := engine.EstimateCloseDate(lastDate, now)
			return writeJSON(cmd.OutOrStdout(), closeDateResult{
				CloseDate:      helpers.FormatDate(&closeDate),
				DaysUntilClose: utilization.DaysUntilClose(closeDate, now, flags.bufferDays),
				Estimated:      lastDate == nil,
			})
		},
	}

	cmd.Flags().StringVar(&last, "last", "", "last statement date, YYYY-MM-DD")
	flags.register(cmd)

	return cmd
}
