package utilization

// Band is the risk classification of a utilization percentage.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandWarning   Band = "warning"
	BandBad       Band = "bad"
	BandSevere    Band = "severe"
)

// Inclusive upper bounds of each band.
const (
	excellentMax = 9
	goodMax      = 29
	warningMax   = 49
	badMax       = 74
)

var bandDescriptions = map[Band]string{
	BandExcellent: "Excellent - optimal for your credit score",
	BandGood:      "Good - keep it below 10% for the best score",
	BandWarning:   "Fair - paying down will help your score",
	BandBad:       "Poor - high utilization is hurting your score",
	BandSevere:    "Critical - pay down before the statement closes",
}

// ClassifyBand maps a utilization percentage to exactly one band.
func ClassifyBand(pct int) Band {
	switch {
	case pct <= excellentMax:
		return BandExcellent
	case pct <= goodMax:
		return BandGood
	case pct <= warningMax:
		return BandWarning
	case pct <= badMax:
		return BandBad
	default:
		return BandSevere
	}
}

func (b Band) Description() string {
	return bandDescriptions[b]
}

// BandCounts holds the number of cards in each band.
type BandCounts struct {
	Excellent int
	Good      int
	Warning   int
	Bad       int
	Severe    int
}

func (c *BandCounts) add(b Band) {
	switch b {
	case BandExcellent:
		c.Excellent++
	case BandGood:
		c.Good++
	case BandWarning:
		c.Warning++
	case BandBad:
		c.Bad++
	case BandSevere:
		c.Severe++
	}
}
