package handlers

import (
	"log/slog"
	"time"

	"github.com/GregMSThompson/utilization-pilot/internal/response"
)

type Deps struct {
	Log             *slog.Logger
	ResponseHandler response.ResponseHandler
	Environment     string

	UserSvc      UserService
	PlaidSvc     PlaidService
	BankSvc      BankService
	AccountSvc   AccountService
	DashboardSvc DashboardService
	AdvisorSvc   AdvisorService

	// ClockNow defaults to time.Now.
	ClockNow func() time.Time
}

func (d *Deps) now() time.Time {
	if d.ClockNow != nil {
		return d.ClockNow()
	}
	return time.Now()
}
