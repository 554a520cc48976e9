package services

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/GregMSThompson/utilization-pilot/internal/dto"
	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
	"github.com/GregMSThompson/utilization-pilot/internal/utilization"
	"github.com/GregMSThompson/utilization-pilot/pkg/logger"
)

const (
	minTargetUtilization = 0.01
	maxTargetUtilization = 0.50
	maxPaydownLimit      = 100000
	defaultHistoryLimit  = 30
	maxHistoryLimit      = 365
)

var accountIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

type accountDSStore interface {
	List(ctx context.Context, uid string) ([]*models.Account, error)
	Get(ctx context.Context, uid, accountID string) (*models.Account, error)
	UpdateTargets(ctx context.Context, uid, accountID string, target *float64, paydownLimit *float64) error
}

type settingsDSStore interface {
	GetSettings(ctx context.Context, uid string) (models.UserSettings, error)
	UpdateSettings(ctx context.Context, uid string, upd dto.SettingsUpdate) error
}

// historyStore is satisfied by the Firestore and Postgres history stores.
type historyStore interface {
	Record(ctx context.Context, snap models.UtilizationSnapshot) error
	List(ctx context.Context, uid string, limit int) ([]models.UtilizationSnapshot, error)
}

type dashboardService struct {
	accounts accountDSStore
	settings settingsDSStore
	history  historyStore
	engine   *utilization.Engine
	clockNow func() time.Time
}

func NewDashboardService(accounts accountDSStore, settings settingsDSStore, history historyStore, engine *utilization.Engine) *dashboardService {
	return &dashboardService{
		accounts: accounts,
		settings: settings,
		history:  history,
		engine:   engine,
		clockNow: time.Now,
	}
}

// Evaluate loads the user's accounts and runs the utilization engine over them.
func (s *dashboardService) Evaluate(ctx context.Context, uid string) (utilization.Result, error) {
	res, _, _, err := s.evaluate(ctx, uid)
	return res, err
}

func (s *dashboardService) evaluate(ctx context.Context, uid string) (utilization.Result, []*models.Account, models.UserSettings, error) {
	settings, err := s.settings.GetSettings(ctx, uid)
	if err != nil {
		return utilization.Result{}, nil, models.UserSettings{}, err
	}
	accounts, err := s.accounts.List(ctx, uid)
	if err != nil {
		return utilization.Result{}, nil, models.UserSettings{}, err
	}
	res, err := s.engine.Evaluate(toSnapshots(ctx, accounts, settings))
	if err != nil {
		return utilization.Result{}, nil, models.UserSettings{}, err
	}
	return res, accounts, settings, nil
}

// toSnapshots converts stored accounts into engine input, applying the user's default target.
func toSnapshots(ctx context.Context, accounts []*models.Account, settings models.UserSettings) []utilization.AccountSnapshot {
	log := logger.FromContext(ctx)
	out := make([]utilization.AccountSnapshot, 0, len(accounts))
	for _, a := range accounts {
		balance := a.CurrentBalance
		// credit balances (overpayment) read as negative
		if balance < 0 || math.IsNaN(balance) {
			log.Debug("clamping non-positive balance", "account_id", a.AccountID, "balance", balance)
			balance = 0
		}
		limit := 0.0
		if a.CreditLimit != nil && *a.CreditLimit > 0 {
			limit = *a.CreditLimit
		}
		target := a.TargetUtilization
		if target <= 0 {
			target = settings.TargetUtilization
		}

		out = append(out, utilization.AccountSnapshot{
			ID:                a.AccountID,
			Name:              a.Name,
			OfficialName:      a.OfficialName,
			Type:              a.Type,
			Subtype:           a.Subtype,
			Balance:           balance,
			Limit:             limit,
			TargetRatio:       target,
			LastStatementDate: a.LastStatementDate,
			UpdatedAt:         a.UpdatedAt,
		})
	}
	return out
}

// GetDashboard evaluates the portfolio and records a history snapshot.
// History failures are logged so the dashboard still renders.
func (s *dashboardService) GetDashboard(ctx context.Context, uid string) (dto.DashboardResponse, error) {
	res, accounts, settings, err := s.evaluate(ctx, uid)
	if err != nil {
		return dto.DashboardResponse{}, err
	}

	if len(res.Cards) > 0 {
		if err := s.history.Record(ctx, s.snapshot(uid, res)); err != nil {
			logger.FromContext(ctx).Warn("failed to record utilization history", "error", err)
		}
	}

	resp := dto.NewDashboardResponse(res)
	resp.ApplyPaydownLimits(paydownLimits(accounts), settings.MonthlyPaydownLimit)
	return resp, nil
}

func paydownLimits(accounts []*models.Account) map[string]float64 {
	out := map[string]float64{}
	for _, a := range accounts {
		if a.MonthlyPaydownLimit != nil {
			out[a.AccountID] = *a.MonthlyPaydownLimit
		}
	}
	return out
}

func (s *dashboardService) snapshot(uid string, res utilization.Result) models.UtilizationSnapshot {
	marks := make([]models.CardUtilizationMark, 0, len(res.Cards))
	for _, c := range res.Cards {
		marks = append(marks, models.CardUtilizationMark{
			AccountID:   c.ID,
			Balance:     c.Balance,
			Limit:       c.Limit,
			Utilization: c.Utilization,
			Band:        string(c.Band),
		})
	}
	return models.UtilizationSnapshot{
		SnapshotID:         uuid.NewString(),
		UID:                uid,
		TotalBalance:       res.Portfolio.TotalBalance,
		TotalLimit:         res.Portfolio.TotalLimit,
		OverallUtilization: res.Portfolio.OverallUtilization,
		Cards:              marks,
		CreatedAt:          s.clockNow(),
	}
}

func (s *dashboardService) History(ctx context.Context, uid string, limit int) (dto.HistoryResponse, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	snaps, err := s.history.List(ctx, uid, limit)
	if err != nil {
		return dto.HistoryResponse{}, err
	}
	if snaps == nil {
		snaps = []models.UtilizationSnapshot{}
	}
	return dto.HistoryResponse{Snapshots: snaps}, nil
}

// UpdateTargets changes one account's targets, or the user defaults when no account is given.
func (s *dashboardService) UpdateTargets(ctx context.Context, uid string, req dto.UpdateTargetsRequest) (dto.UpdateTargetsResponse, error) {
	if err := ValidateTargets(req); err != nil {
		return dto.UpdateTargetsResponse{}, err
	}
	log := logger.FromContext(ctx)

	if req.AccountID == "" {
		upd := dto.SettingsUpdate{
			TargetUtilization:   req.TargetUtilization,
			MonthlyPaydownLimit: req.MonthlyPaydownLimit,
			RemindersEnabled:    req.RemindersEnabled,
		}
		if err := s.settings.UpdateSettings(ctx, uid, upd); err != nil {
			return dto.UpdateTargetsResponse{}, err
		}
		settings, err := s.settings.GetSettings(ctx, uid)
		if err != nil {
			return dto.UpdateTargetsResponse{}, err
		}
		log.Info("default targets updated", "reminders_enabled", settings.RemindersEnabled)
		return dto.UpdateTargetsResponse{
			TargetUtilization:   settings.TargetUtilization,
			MonthlyPaydownLimit: settings.MonthlyPaydownLimit,
			RemindersEnabled:    &settings.RemindersEnabled,
		}, nil
	}

	if _, err := s.accounts.Get(ctx, uid, req.AccountID); err != nil {
		return dto.UpdateTargetsResponse{}, err
	}
	if err := s.accounts.UpdateTargets(ctx, uid, req.AccountID, req.TargetUtilization, req.MonthlyPaydownLimit); err != nil {
		return dto.UpdateTargetsResponse{}, err
	}
	updated, err := s.accounts.Get(ctx, uid, req.AccountID)
	if err != nil {
		return dto.UpdateTargetsResponse{}, err
	}

	log.Info("account targets updated", "account_id", req.AccountID)
	return dto.UpdateTargetsResponse{
		AccountID:           updated.AccountID,
		TargetUtilization:   updated.TargetUtilization,
		MonthlyPaydownLimit: updated.MonthlyPaydownLimit,
	}, nil
}

// ValidateTargets checks the bounds of a targets update.
func ValidateTargets(req dto.UpdateTargetsRequest) error {
	if req.TargetUtilization == nil && req.MonthlyPaydownLimit == nil && req.RemindersEnabled == nil {
		return errs.NewValidationError("target_utilization, monthly_paydown_limit or reminders_enabled is required")
	}
	if req.AccountID != "" && req.RemindersEnabled != nil {
		return errs.NewValidationError("reminders_enabled is a user setting and cannot be set per account")
	}
	if req.AccountID != "" && !accountIDPattern.MatchString(req.AccountID) {
		return errs.NewValidationError("invalid accountId")
	}
	if t := req.TargetUtilization; t != nil {
		if math.IsNaN(*t) || *t < minTargetUtilization || *t > maxTargetUtilization {
			return errs.NewValidationError(fmt.Sprintf("target_utilization must be between %.2f and %.2f", minTargetUtilization, maxTargetUtilization))
		}
	}
	if l := req.MonthlyPaydownLimit; l != nil {
		if math.IsNaN(*l) || *l < 0 || *l > maxPaydownLimit {
			return errs.NewValidationError(fmt.Sprintf("monthly_paydown_limit must be between 0 and %d", maxPaydownLimit))
		}
	}
	return nil
}

// ValidAccountID reports whether id has the shape of a provider account id.
func ValidAccountID(id string) bool {
	return accountIDPattern.MatchString(id)
}
