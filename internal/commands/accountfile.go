package commands

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/GregMSThompson/utilization-pilot/internal/utilization"
	"github.com/GregMSThompson/utilization-pilot/pkg/helpers"
)

// accountFile is the YAML layout read by evaluate.
type accountFile struct {
	Accounts []accountEntry `yaml:"accounts"`
}

type accountEntry struct {
	ID                string  `yaml:"id"`
	Name              string  `yaml:"name"`
	OfficialName      string  `yaml:"official_name,omitempty"`
	Type              string  `yaml:"type,omitempty"`
	Subtype           string  `yaml:"subtype"`
	Balance           float64 `yaml:"balance"`
	Limit             float64 `yaml:"limit"`
	Target            float64 `yaml:"target,omitempty"`
	LastStatementDate string  `yaml:"last_statement_date,omitempty"`
}

func loadAccounts(path string) ([]utilization.AccountSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return parseAccounts(data)
}

func parseAccounts(data []byte) ([]utilization.AccountSnapshot, error) {
	var f accountFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing accounts: %w", err)
	}

	out := make([]utilization.AccountSnapshot, 0, len(f.Accounts))
	for i, a := range f.Accounts {
		last, err := helpers.ParseDate(a.LastStatementDate)
		if err != nil {
			return nil, fmt.Errorf("account %d (%s): invalid last_statement_date %q", i+1, a.ID, a.LastStatementDate)
		}
		snap := utilization.AccountSnapshot{
			ID:                a.ID,
			Name:              a.Name,
			Type:              a.Type,
			Subtype:           a.Subtype,
			Balance:           a.Balance,
			Limit:             a.Limit,
			TargetRatio:       a.Target,
			LastStatementDate: last,
		}
		if snap.Type == "" {
			snap.Type = "credit"
		}
		if a.OfficialName != "" {
			snap.OfficialName = helpers.Ptr(a.OfficialName)
		}
		out = append(out, snap)
	}
	return out, nil
}
