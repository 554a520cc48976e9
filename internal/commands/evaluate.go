package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/GregMSThompson/utilization-pilot/internal/dto"
	"github.com/GregMSThompson/utilization-pilot/internal/utilization"
)

type engineFlags struct {
	now              string
	fallbackDay      int
	bufferDays       int
	configuredTarget bool
}

func (f *engineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.now, "now", "", "evaluation date, YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&f.fallbackDay, "fallback-day", utilization.DefaultFallbackDay, "statement close day when none is known")
	cmd.Flags().IntVar(&f.bufferDays, "buffer-days", utilization.DefaultBufferDays, "days reserved for a payment to post")
}

func (f *engineFlags) engine() (*utilization.Engine, error) {
	now, err := parseNow(f.now)
	if err != nil {
		return nil, err
	}
	if f.bufferDays < 0 {
		return nil, errors.New("--buffer-days must not be negative")
	}
	buffer := f.bufferDays
	e := utilization.NewEngine(utilization.Options{
		FallbackCloseDay:       f.fallbackDay,
		BufferDays:             &buffer,
		ReportConfiguredTarget: f.configuredTarget,
	})
	return e.WithClock(func() time.Time { return now }), nil
}

func newEvaluateCommand() *cobra.Command {
	var file string
	var flags engineFlags

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a YAML account file and print the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := loadAccounts(file)
			if err != nil {
				return err
			}
			engine, err := flags.engine()
			if err != nil {
				return err
			}
			res, err := engine.Evaluate(accounts)
			if err != nil {
				return fmt.Errorf("evaluating: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), dto.NewDashboardResponse(res))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "accounts YAML file (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().BoolVar(&flags.configuredTarget, "configured-target", false, "report each card's own target in recommendations")
	flags.register(cmd)

	return cmd
}
