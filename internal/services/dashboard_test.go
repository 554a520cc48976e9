package services

import (
	"errors"
	"testing"
	"time"

	"github.com/GregMSThompson/utilization-pilot/internal/dto"
	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
	"github.com/GregMSThompson/utilization-pilot/internal/utilization"
	"github.com/GregMSThompson/utilization-pilot/pkg/helpers"
)

var dashNow = time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC)

func creditAccount(id string, balance float64, limit *float64) *models.Account {
	last := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	return &models.Account{
		AccountID:         id,
		Name:              "Card " + id,
		Type:              "credit",
		Subtype:           utilization.CreditCardSubtype,
		CurrentBalance:    balance,
		CreditLimit:       limit,
		LastStatementDate: &last,
		UpdatedAt:         dashNow,
	}
}

type dashboardFixture struct {
	accounts *fakeAccountStore
	settings *fakeSettingsStore
	history  *fakeHistoryStore
	svc      *dashboardService
}

func newDashboardFixture(opts utilization.Options, accounts ...*models.Account) *dashboardFixture {
	f := &dashboardFixture{
		accounts: newFakeAccountStore(accounts...),
		settings: &fakeSettingsStore{},
		history:  &fakeHistoryStore{},
	}
	engine := utilization.NewEngine(opts).WithClock(func() time.Time { return dashNow })
	f.svc = NewDashboardService(f.accounts, f.settings, f.history, engine)
	f.svc.clockNow = func() time.Time { return dashNow }
	return f
}

func TestGetDashboardScenario(t *testing.T) {
	f := newDashboardFixture(utilization.Options{},
		creditAccount("a", 8500, helpers.Ptr(10000.0)),
		creditAccount("b", 450, helpers.Ptr(25000.0)),
		&models.Account{AccountID: "chk", Subtype: "checking", CurrentBalance: 900},
	)

	resp, err := f.svc.GetDashboard(testCtx(), "uid-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.CreditCards) != 2 {
		t.Fatalf("expected 2 credit cards, got %d", len(resp.CreditCards))
	}
	if resp.OverallUtilization != 26 || resp.TotalBalance != 8950 || resp.TotalLimit != 35000 {
		t.Fatalf("unexpected totals: %+v", resp)
	}
	if resp.Summary.SevereCards != 1 || resp.Summary.ExcellentCards != 1 {
		t.Fatalf("unexpected summary: %+v", resp.Summary)
	}
	if len(resp.Recommendations) != 1 {
		t.Fatalf("expected 1 recommendation, got %+v", resp.Recommendations)
	}
	rec := resp.Recommendations[0]
	if rec.CardID != "a" || rec.Amount != 7600 || rec.Priority != "high" || rec.CloseDate != "2025-02-10" || rec.DaysUntilClose != 19 {
		t.Fatalf("unexpected recommendation: %+v", rec)
	}
	if rec.PaydownLimit != nil || rec.ExceedsPaydownLimit || resp.PaydownBudget != nil {
		t.Fatalf("no paydown limits configured, got %+v %+v", rec, resp.PaydownBudget)
	}

	if len(f.history.recorded) != 1 {
		t.Fatalf("expected a history snapshot, got %d", len(f.history.recorded))
	}
	snap := f.history.recorded[0]
	if snap.UID != "uid-1" || snap.OverallUtilization != 26 || len(snap.Cards) != 2 || snap.SnapshotID == "" || !snap.CreatedAt.Equal(dashNow) {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestGetDashboardPaydownLimits(t *testing.T) {
	capped := creditAccount("a", 8500, helpers.Ptr(10000.0))
	capped.MonthlyPaydownLimit = helpers.Ptr(5000.0)
	f := newDashboardFixture(utilization.Options{},
		capped,
		creditAccount("b", 9000, helpers.Ptr(10000.0)),
	)
	f.settings.settings.MonthlyPaydownLimit = helpers.Ptr(12000.0)

	resp, err := f.svc.GetDashboard(testCtx(), "uid-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %+v", resp.Recommendations)
	}
	for _, r := range resp.Recommendations {
		switch r.CardID {
		case "a":
			if r.Amount != 7600 || helpers.Value(r.PaydownLimit) != 5000 || !r.ExceedsPaydownLimit {
				t.Fatalf("expected card a flagged over its limit, got %+v", r)
			}
		case "b":
			if r.Amount != 8100 || r.PaydownLimit != nil || r.ExceedsPaydownLimit {
				t.Fatalf("expected card b unflagged, got %+v", r)
			}
		}
	}

	budget := resp.PaydownBudget
	if budget == nil {
		t.Fatal("expected a paydown budget")
	}
	if budget.MonthlyLimit != 12000 || budget.TotalRecommended != 15700 || budget.Shortfall != 3700 || budget.WithinLimit {
		t.Fatalf("unexpected budget: %+v", budget)
	}
}

func TestGetDashboardEmptyPortfolio(t *testing.T) {
	f := newDashboardFixture(utilization.Options{})

	resp, err := f.svc.GetDashboard(testCtx(), "uid-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.CreditCards == nil || resp.Recommendations == nil || len(resp.CreditCards) != 0 {
		t.Fatalf("expected empty non-nil slices, got %+v", resp)
	}
	if len(f.history.recorded) != 0 {
		t.Fatal("no history should be recorded without cards")
	}
}

func TestGetDashboardClampsOverpaidAndMissingLimit(t *testing.T) {
	f := newDashboardFixture(utilization.Options{},
		creditAccount("overpaid", -120, helpers.Ptr(5000.0)),
		creditAccount("nolimit", 300, nil),
	)

	resp, err := f.svc.GetDashboard(testCtx(), "uid-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range resp.CreditCards {
		switch c.ID {
		case "overpaid":
			if c.Balance != 0 || c.Utilization != 0 {
				t.Fatalf("expected overpaid balance clamped to 0, got %+v", c)
			}
		case "nolimit":
			if c.Limit != 0 || c.Utilization != 0 {
				t.Fatalf("expected missing limit as 0, got %+v", c)
			}
		}
	}
}

func TestGetDashboardHistoryFailureIsLogged(t *testing.T) {
	f := newDashboardFixture(utilization.Options{}, creditAccount("a", 100, helpers.Ptr(1000.0)))
	f.history.err = errors.New("history down")

	if _, err := f.svc.GetDashboard(testCtx(), "uid-1"); err != nil {
		t.Fatalf("history failure should not fail the dashboard: %v", err)
	}
}

func TestGetDashboardPropagatesStoreErrors(t *testing.T) {
	f := newDashboardFixture(utilization.Options{})
	f.accounts.listErr = errs.NewDatabaseError("read", "failed", nil)
	if _, err := f.svc.GetDashboard(testCtx(), "uid-1"); err == nil {
		t.Fatal("expected error")
	}

	f = newDashboardFixture(utilization.Options{})
	f.settings.getErr = errors.New("settings down")
	if _, err := f.svc.GetDashboard(testCtx(), "uid-1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestToSnapshotsApplyTargets(t *testing.T) {
	own := creditAccount("own", 100, helpers.Ptr(1000.0))
	own.TargetUtilization = 0.05
	inherit := creditAccount("inherit", 100, helpers.Ptr(1000.0))

	snaps := toSnapshots(testCtx(), []*models.Account{own, inherit}, models.UserSettings{TargetUtilization: 0.2})
	for _, s := range snaps {
		want := 0.2
		if s.ID == "own" {
			want = 0.05
		}
		if s.TargetRatio != want {
			t.Fatalf("account %s target = %v, want %v", s.ID, s.TargetRatio, want)
		}
	}
}

func TestUpdateTargetsAccount(t *testing.T) {
	f := newDashboardFixture(utilization.Options{}, creditAccount("acc-1", 100, helpers.Ptr(1000.0)))

	resp, err := f.svc.UpdateTargets(testCtx(), "uid-1", dto.UpdateTargetsRequest{
		AccountID:           "acc-1",
		TargetUtilization:   helpers.Ptr(0.1),
		MonthlyPaydownLimit: helpers.Ptr(500.0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.AccountID != "acc-1" || resp.TargetUtilization != 0.1 || helpers.Value(resp.MonthlyPaydownLimit) != 500 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestUpdateTargetsDefaults(t *testing.T) {
	f := newDashboardFixture(utilization.Options{})

	resp, err := f.svc.UpdateTargets(testCtx(), "uid-1", dto.UpdateTargetsRequest{TargetUtilization: helpers.Ptr(0.3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.AccountID != "" || resp.TargetUtilization != 0.3 || f.settings.settings.TargetUtilization != 0.3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestUpdateTargetsRemindersOptOut(t *testing.T) {
	f := newDashboardFixture(utilization.Options{})
	f.settings.settings.RemindersEnabled = true

	resp, err := f.svc.UpdateTargets(testCtx(), "uid-1", dto.UpdateTargetsRequest{RemindersEnabled: helpers.Ptr(false)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.settings.settings.RemindersEnabled {
		t.Fatal("expected reminders disabled in stored settings")
	}
	if resp.RemindersEnabled == nil || *resp.RemindersEnabled {
		t.Fatalf("expected remindersEnabled=false in response, got %+v", resp)
	}
}

func TestUpdateTargetsUnknownAccount(t *testing.T) {
	f := newDashboardFixture(utilization.Options{})

	_, err := f.svc.UpdateTargets(testCtx(), "uid-1", dto.UpdateTargetsRequest{AccountID: "acc-9", TargetUtilization: helpers.Ptr(0.1)})
	var nf *errs.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestValidateTargets(t *testing.T) {
	cases := map[string]struct {
		req   dto.UpdateTargetsRequest
		valid bool
	}{
		"empty":                {req: dto.UpdateTargetsRequest{}, valid: false},
		"min target":           {req: dto.UpdateTargetsRequest{TargetUtilization: helpers.Ptr(0.01)}, valid: true},
		"max target":           {req: dto.UpdateTargetsRequest{TargetUtilization: helpers.Ptr(0.50)}, valid: true},
		"target too low":       {req: dto.UpdateTargetsRequest{TargetUtilization: helpers.Ptr(0.0)}, valid: false},
		"target too high":      {req: dto.UpdateTargetsRequest{TargetUtilization: helpers.Ptr(0.51)}, valid: false},
		"limit zero":           {req: dto.UpdateTargetsRequest{MonthlyPaydownLimit: helpers.Ptr(0.0)}, valid: true},
		"limit negative":       {req: dto.UpdateTargetsRequest{MonthlyPaydownLimit: helpers.Ptr(-1.0)}, valid: false},
		"limit too high":       {req: dto.UpdateTargetsRequest{MonthlyPaydownLimit: helpers.Ptr(100001.0)}, valid: false},
		"bad account id":       {req: dto.UpdateTargetsRequest{AccountID: "acc/1", TargetUtilization: helpers.Ptr(0.1)}, valid: false},
		"good account id":      {req: dto.UpdateTargetsRequest{AccountID: "Ab_9-x", TargetUtilization: helpers.Ptr(0.1)}, valid: true},
		"reminders only":       {req: dto.UpdateTargetsRequest{RemindersEnabled: helpers.Ptr(false)}, valid: true},
		"reminders on account": {req: dto.UpdateTargetsRequest{AccountID: "acc-1", RemindersEnabled: helpers.Ptr(true)}, valid: false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateTargets(tc.req)
			if tc.valid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.valid {
				var ve *errs.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
			}
		})
	}
}

func TestHistoryLimits(t *testing.T) {
	f := newDashboardFixture(utilization.Options{})

	resp, err := f.svc.History(testCtx(), "uid-1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.history.limit != defaultHistoryLimit || resp.Snapshots == nil {
		t.Fatalf("expected default limit and non-nil snapshots, got %d %+v", f.history.limit, resp)
	}

	if _, err := f.svc.History(testCtx(), "uid-1", 10000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.history.limit != maxHistoryLimit {
		t.Fatalf("expected limit capped at %d, got %d", maxHistoryLimit, f.history.limit)
	}
}
