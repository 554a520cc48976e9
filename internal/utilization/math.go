package utilization

import "github.com/shopspring/decimal"

// DefaultTargetRatio is the balance-to-limit ratio used when an account has no configured target.
const DefaultTargetRatio = 0.09

var hundred = decimal.NewFromInt(100)

// CalculateUtilization returns balance/limit as a whole percentage, rounded half up.
// A zero limit means the limit is unknown and yields 0. Results above 100 are not capped.
func CalculateUtilization(balance, limit float64) int {
	if limit <= 0 {
		return 0
	}
	pct := decimal.NewFromFloat(balance).
		Div(decimal.NewFromFloat(limit)).
		Mul(hundred)
	return int(pct.Round(0).IntPart())
}

// PaydownAmount returns the whole-unit payment that brings balance down to limit*target.
// The amount is rounded up so paying it never leaves the balance above target.
func PaydownAmount(balance, limit, target float64) float64 {
	if target <= 0 {
		target = DefaultTargetRatio
	}
	bal := decimal.NewFromFloat(balance)
	maxAllowed := decimal.NewFromFloat(limit).Mul(decimal.NewFromFloat(target))
	if bal.LessThanOrEqual(maxAllowed) {
		return 0
	}
	return bal.Sub(maxAllowed).Ceil().InexactFloat64()
}

// TargetPercent converts a target ratio to the whole percentage shown to users.
func TargetPercent(target float64) int {
	if target <= 0 {
		target = DefaultTargetRatio
	}
	return int(decimal.NewFromFloat(target).Mul(hundred).Round(0).IntPart())
}
