package utilization

import "time"

// CreditCardSubtype is the only account subtype with utilization semantics.
const CreditCardSubtype = "credit card"

// AccountSnapshot is one account as last fetched from the provider.
type AccountSnapshot struct {
	ID                string
	Name              string
	OfficialName      *string
	Type              string
	Subtype           string
	Balance           float64
	Limit             float64
	TargetRatio       float64
	LastStatementDate *time.Time
	UpdatedAt         time.Time
}

// CardView is the derived per-card output of an evaluation.
type CardView struct {
	ID             string
	Name           string
	OfficialName   *string
	Balance        float64
	Limit          float64
	Utilization    int
	Band           Band
	CloseDate      time.Time
	DaysUntilClose int
	PaydownAmount  float64
	TargetRatio    float64
	LastUpdated    time.Time
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Recommendation struct {
	CardID             string
	CardName           string
	Amount             float64
	CurrentUtilization int
	TargetUtilization  int
	CloseDate          time.Time
	DaysUntilClose     int
	Priority           Priority
}

type Portfolio struct {
	TotalBalance       float64
	TotalLimit         float64
	OverallUtilization int
	Bands              BandCounts
}

type Result struct {
	Cards           []CardView
	Portfolio       Portfolio
	Recommendations []Recommendation
}

// Options tunes an Engine. Zero values fall back to the defaults.
type Options struct {
	FallbackCloseDay int
	BufferDays       *int
	// ReportConfiguredTarget shows each card's own target in recommendations
	// instead of the fixed default of 9.
	ReportConfiguredTarget bool
}

func (o Options) fallbackDay() int {
	if o.FallbackCloseDay < 1 || o.FallbackCloseDay > 31 {
		return DefaultFallbackDay
	}
	return o.FallbackCloseDay
}

func (o Options) bufferDays() int {
	if o.BufferDays == nil || *o.BufferDays < 0 {
		return DefaultBufferDays
	}
	return *o.BufferDays
}
