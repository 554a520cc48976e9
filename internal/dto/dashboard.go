package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/utilization-pilot/internal/models"
	"github.com/GregMSThompson/utilization-pilot/internal/utilization"
)

const dateLayout = "2006-01-02"

type BandInfo struct {
	Band        string `json:"band"`
	Description string `json:"description"`
}

type CreditCardView struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	OfficialName      *string   `json:"officialName"`
	Balance           float64   `json:"balance"`
	Limit             float64   `json:"limit"`
	Utilization       int       `json:"utilization"`
	Band              BandInfo  `json:"band"`
	CloseDate         string    `json:"closeDate"`
	DaysUntilClose    int       `json:"daysUntilClose"`
	PaydownAmount     float64   `json:"paydownAmount"`
	TargetUtilization int       `json:"targetUtilization"`
	LastUpdated       time.Time `json:"lastUpdated"`
}

type RecommendationView struct {
	CardID             string  `json:"cardId"`
	CardName           string  `json:"cardName"`
	Amount             float64 `json:"amount"`
	CurrentUtilization int     `json:"currentUtilization"`
	TargetUtilization  int     `json:"targetUtilization"`
	DaysUntilClose     int     `json:"daysUntilClose"`
	CloseDate          string  `json:"closeDate"`
	Priority           string  `json:"priority"`

	PaydownLimit        *float64 `json:"paydownLimit,omitempty"`
	ExceedsPaydownLimit bool     `json:"exceedsPaydownLimit,omitempty"`
}

type BandSummary struct {
	ExcellentCards int `json:"excellentCards"`
	GoodCards      int `json:"goodCards"`
	WarningCards   int `json:"warningCards"`
	BadCards       int `json:"badCards"`
	SevereCards    int `json:"severeCards"`
}

type DashboardResponse struct {
	CreditCards        []CreditCardView     `json:"creditCards"`
	OverallUtilization int                  `json:"overallUtilization"`
	TotalLimit         float64              `json:"totalLimit"`
	TotalBalance       float64              `json:"totalBalance"`
	Recommendations    []RecommendationView `json:"recommendations"`
	Summary            BandSummary          `json:"summary"`
	PaydownBudget      *PaydownBudget       `json:"paydownBudget,omitempty"`
}

// PaydownBudget compares the recommended paydown with the user's monthly limit.
type PaydownBudget struct {
	MonthlyLimit     float64 `json:"monthlyLimit"`
	TotalRecommended float64 `json:"totalRecommended"`
	Shortfall        float64 `json:"shortfall"`
	WithinLimit      bool    `json:"withinLimit"`
}

// NewDashboardResponse maps an engine result to its JSON shape.
func NewDashboardResponse(res utilization.Result) DashboardResponse {
	out := DashboardResponse{
		CreditCards:        make([]CreditCardView, 0, len(res.Cards)),
		OverallUtilization: res.Portfolio.OverallUtilization,
		TotalLimit:         res.Portfolio.TotalLimit,
		TotalBalance:       res.Portfolio.TotalBalance,
		Recommendations:    make([]RecommendationView, 0, len(res.Recommendations)),
		Summary: BandSummary{
			ExcellentCards: res.Portfolio.Bands.Excellent,
			GoodCards:      res.Portfolio.Bands.Good,
			WarningCards:   res.Portfolio.Bands.Warning,
			BadCards:       res.Portfolio.Bands.Bad,
			SevereCards:    res.Portfolio.Bands.Severe,
		},
	}

	for _, c := range res.Cards {
		out.CreditCards = append(out.CreditCards, NewCreditCardView(c))
	}
	for _, r := range res.Recommendations {
		out.Recommendations = append(out.Recommendations, RecommendationView{
			CardID:             r.CardID,
			CardName:           r.CardName,
			Amount:             r.Amount,
			CurrentUtilization: r.CurrentUtilization,
			TargetUtilization:  r.TargetUtilization,
			DaysUntilClose:     r.DaysUntilClose,
			CloseDate:          r.CloseDate.Format(dateLayout),
			Priority:           string(r.Priority),
		})
	}
	return out
}

// ApplyPaydownLimits flags recommendations above their card's monthly paydown limit
// and totals the plan against the user's limit. A nil monthly limit leaves the budget unset.
func (d *DashboardResponse) ApplyPaydownLimits(cardLimits map[string]float64, monthly *float64) {
	total := decimal.Zero
	for i := range d.Recommendations {
		r := &d.Recommendations[i]
		total = total.Add(decimal.NewFromFloat(r.Amount))
		if limit, ok := cardLimits[r.CardID]; ok {
			r.PaydownLimit = &limit
			r.ExceedsPaydownLimit = r.Amount > limit
		}
	}
	if monthly == nil {
		return
	}

	shortfall := total.Sub(decimal.NewFromFloat(*monthly))
	if shortfall.IsNegative() {
		shortfall = decimal.Zero
	}
	d.PaydownBudget = &PaydownBudget{
		MonthlyLimit:     *monthly,
		TotalRecommended: total.InexactFloat64(),
		Shortfall:        shortfall.InexactFloat64(),
		WithinLimit:      shortfall.IsZero(),
	}
}

func NewCreditCardView(c utilization.CardView) CreditCardView {
	return CreditCardView{
		ID:                c.ID,
		Name:              c.Name,
		OfficialName:      c.OfficialName,
		Balance:           c.Balance,
		Limit:             c.Limit,
		Utilization:       c.Utilization,
		Band:              BandInfo{Band: string(c.Band), Description: c.Band.Description()},
		CloseDate:         c.CloseDate.Format(dateLayout),
		DaysUntilClose:    c.DaysUntilClose,
		PaydownAmount:     c.PaydownAmount,
		TargetUtilization: utilization.TargetPercent(c.TargetRatio),
		LastUpdated:       c.LastUpdated,
	}
}

// UpdateTargetsRequest changes one account, or the user default when AccountID is empty.
type UpdateTargetsRequest struct {
	AccountID           string   `json:"accountId,omitempty"`
	TargetUtilization   *float64 `json:"target_utilization,omitempty"`
	MonthlyPaydownLimit *float64 `json:"monthly_paydown_limit,omitempty"`
	RemindersEnabled    *bool    `json:"reminders_enabled,omitempty"`
}

type UpdateTargetsResponse struct {
	AccountID           string   `json:"accountId,omitempty"`
	TargetUtilization   float64  `json:"targetUtilization"`
	MonthlyPaydownLimit *float64 `json:"monthlyPaydownLimit,omitempty"`
	RemindersEnabled    *bool    `json:"remindersEnabled,omitempty"`
}

// SettingsUpdate lists the user default fields to change. Nil fields keep their stored value.
type SettingsUpdate struct {
	TargetUtilization   *float64
	MonthlyPaydownLimit *float64
	RemindersEnabled    *bool
}

type HistoryResponse struct {
	Snapshots []models.UtilizationSnapshot `json:"snapshots"`
}
