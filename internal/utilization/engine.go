package utilization

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/utilization-pilot/internal/errs"
)

const (
	highPriorityMin   = 75
	mediumPriorityMin = 50
)

// Engine evaluates account snapshots into card views, a portfolio summary and
// paydown recommendations. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	opts     Options
	clockNow func() time.Time
}

func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts, clockNow: time.Now}
}

// WithClock returns a copy of the engine that reads the current time from now.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	cp := *e
	cp.clockNow = now
	return &cp
}

// EstimateCloseDate applies the engine's fallback day.
func (e *Engine) EstimateCloseDate(last *time.Time, now time.Time) time.Time {
	return estimateCloseDate(last, now, e.opts.fallbackDay())
}

// Evaluate runs the full pipeline over accounts. Non credit card accounts are ignored.
func (e *Engine) Evaluate(accounts []AccountSnapshot) (Result, error) {
	for _, a := range accounts {
		if err := Validate(a); err != nil {
			return Result{}, err
		}
	}

	cards := make([]AccountSnapshot, 0, len(accounts))
	for _, a := range accounts {
		if a.Subtype == CreditCardSubtype {
			cards = append(cards, a)
		}
	}
	if len(cards) == 0 {
		return EmptyResult(), nil
	}

	now := e.clockNow()
	views := make([]CardView, 0, len(cards))
	for _, c := range cards {
		views = append(views, e.view(c, now))
	}

	return Result{
		Cards:           views,
		Portfolio:       summarize(views),
		Recommendations: e.recommend(views),
	}, nil
}

// EvaluateCard derives the view of a single account using the engine clock.
func (e *Engine) EvaluateCard(a AccountSnapshot) (CardView, error) {
	if err := Validate(a); err != nil {
		return CardView{}, err
	}
	return e.view(a, e.clockNow()), nil
}

// EmptyResult is the result for a user with no credit cards.
func EmptyResult() Result {
	return Result{
		Cards:           []CardView{},
		Portfolio:       Portfolio{},
		Recommendations: []Recommendation{},
	}
}

// Validate rejects negative or non-finite amounts.
func Validate(a AccountSnapshot) error {
	checks := []struct {
		field string
		value float64
	}{
		{"balance", a.Balance},
		{"limit", a.Limit},
		{"target ratio", a.TargetRatio},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return errs.NewValidationError(fmt.Sprintf("account %s: %s is not a finite number", a.ID, c.field))
		}
		if c.value < 0 {
			return errs.NewValidationError(fmt.Sprintf("account %s: %s must not be negative", a.ID, c.field))
		}
	}
	if a.TargetRatio > 1 {
		return errs.NewValidationError(fmt.Sprintf("account %s: target ratio must be at most 1", a.ID))
	}
	return nil
}

func (e *Engine) view(a AccountSnapshot, now time.Time) CardView {
	target := a.TargetRatio
	if target == 0 {
		target = DefaultTargetRatio
	}
	pct := CalculateUtilization(a.Balance, a.Limit)
	closeDate := e.EstimateCloseDate(a.LastStatementDate, now)

	return CardView{
		ID:             a.ID,
		Name:           a.Name,
		OfficialName:   a.OfficialName,
		Balance:        a.Balance,
		Limit:          a.Limit,
		Utilization:    pct,
		Band:           ClassifyBand(pct),
		CloseDate:      closeDate,
		DaysUntilClose: DaysUntilClose(closeDate, now, e.opts.bufferDays()),
		PaydownAmount:  PaydownAmount(a.Balance, a.Limit, target),
		TargetRatio:    target,
		LastUpdated:    a.UpdatedAt,
	}
}

func summarize(views []CardView) Portfolio {
	balance, limit := decimal.Zero, decimal.Zero
	var bands BandCounts
	for _, v := range views {
		balance = balance.Add(decimal.NewFromFloat(v.Balance))
		limit = limit.Add(decimal.NewFromFloat(v.Limit))
		bands.add(v.Band)
	}

	totalBalance := balance.InexactFloat64()
	totalLimit := limit.InexactFloat64()
	return Portfolio{
		TotalBalance:       totalBalance,
		TotalLimit:         totalLimit,
		OverallUtilization: CalculateUtilization(totalBalance, totalLimit),
		Bands:              bands,
	}
}

func (e *Engine) recommend(views []CardView) []Recommendation {
	eligible := make([]CardView, 0, len(views))
	for _, v := range views {
		if v.PaydownAmount > 0 && v.DaysUntilClose >= 0 {
			eligible = append(eligible, v)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Utilization > eligible[j].Utilization
	})

	recs := make([]Recommendation, 0, len(eligible))
	for _, v := range eligible {
		target := TargetPercent(DefaultTargetRatio)
		if e.opts.ReportConfiguredTarget {
			target = TargetPercent(v.TargetRatio)
		}
		recs = append(recs, Recommendation{
			CardID:             v.ID,
			CardName:           v.Name,
			Amount:             v.PaydownAmount,
			CurrentUtilization: v.Utilization,
			TargetUtilization:  target,
			CloseDate:          v.CloseDate,
			DaysUntilClose:     v.DaysUntilClose,
			Priority:           priorityFor(v.Utilization),
		})
	}
	return recs
}

func priorityFor(pct int) Priority {
	switch {
	case pct >= highPriorityMin:
		return PriorityHigh
	case pct >= mediumPriorityMin:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
