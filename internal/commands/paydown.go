package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/GregMSThompson/utilization-pilot/internal/utilization"
)

type paydownResult struct {
	Utilization      int     `json:"utilization"`
	Band             string  `json:"band"`
	TargetPercent    int     `json:"targetPercent"`
	PaydownAmount    float64 `json:"paydownAmount"`
	BalanceAfter     float64 `json:"balanceAfter"`
	UtilizationAfter int     `json:"utilizationAfter"`
}

func newPaydownCommand() *cobra.Command {
	var balance, limit, target float64

	cmd := &cobra.Command{
		Use:   "paydown",
		Short: "Compute the payment that brings one card to its target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}
			if balance < 0 {
				return errors.New("--balance must not be negative")
			}
			return writeJSON(cmd.OutOrStdout(), computePaydown(balance, limit, target))
		},
	}

	cmd.Flags().Float64Var(&balance, "balance", 0, "current balance (required)")
	cmd.Flags().Float64Var(&limit, "limit", 0, "credit limit (required)")
	cmd.Flags().Float64Var(&target, "target", utilization.DefaultTargetRatio, "target ratio, e.g. 0.09")
	_ = cmd.MarkFlagRequired("balance")
	_ = cmd.MarkFlagRequired("limit")

	return cmd
}

func computePaydown(balance, limit, target float64) paydownResult {
	pct := utilization.CalculateUtilization(balance, limit)
	amount := utilization.PaydownAmount(balance, limit, target)
	after := balance - amount
	return paydownResult{
		Utilization:      pct,
		Band:             string(utilization.ClassifyBand(pct)),
		TargetPercent:    utilization.TargetPercent(target),
		PaydownAmount:    amount,
		BalanceAfter:     after,
		UtilizationAfter: utilization.CalculateUtilization(after, limit),
	}
}
