package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/GregMSThompson/utilization-pilot/internal/bootstrap"
	"github.com/GregMSThompson/utilization-pilot/internal/config"
	"github.com/GregMSThompson/utilization-pilot/internal/notify"
	"github.com/GregMSThompson/utilization-pilot/internal/scheduler"
	"github.com/GregMSThompson/utilization-pilot/internal/services"
	"github.com/GregMSThompson/utilization-pilot/internal/store"
	"github.com/GregMSThompson/utilization-pilot/internal/utilization"
	"github.com/GregMSThompson/utilization-pilot/pkg/logger"
)

// A one-shot sync job: refreshes every user's balances and sends due reminders,
// for running under an external scheduler instead of the API's cron.

func exitOnError(message string, err error, log *slog.Logger) {
	if err != nil {
		log.Error(message, "error", err)
		os.Exit(1)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// bootstrap
	cfg := config.New()
	bs, err := bootstrap.Run(cfg)
	exitOnError("bootstrap failed", err, bs.Log)
	defer bs.Close()

	// stores
	ustore := store.NewUserStore(bs.Firestore)
	bstore := store.NewBankStore(bs.Firestore)
	acstore := store.NewAccountStore(bs.Firestore)
	tstore := store.NewTransactionStore(bs.Firestore)
	istore := store.NewItemStore(bs.Firestore)
	hstore, hcloser, err := bs.HistoryStore(ctx, cfg)
	exitOnError("history store failed", err, bs.Log)
	if hcloser != nil {
		defer hcloser.Close()
	}

	// services
	engine := utilization.NewEngine(bootstrap.EngineOptions(cfg))
	plserv := services.NewPlaidService(bs.PlaidAdapter, bstore, acstore, tstore, istore, bs.TokenVault(cfg))
	dserv := services.NewDashboardService(acstore, ustore, hstore, engine)

	opts := scheduler.Options{Schedule: cfg.SyncSchedule, RPS: cfg.SyncRPS, ReminderDays: cfg.ReminderDays}
	var sched *scheduler.Scheduler
	if cfg.MailEnabled() {
		sched, err = scheduler.New(bs.Log, ustore, plserv, dserv, notify.NewSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SenderEmail,
		}), opts)
	} else {
		sched, err = scheduler.New(bs.Log, ustore, plserv, dserv, nil, opts)
	}
	exitOnError("scheduler setup failed", err, bs.Log)

	stats, err := sched.RunOnce(logger.ToContext(ctx, bs.Log.With("job", "sync_once")))
	exitOnError("sync run failed", err, bs.Log)
	bs.Log.Info("sync job finished", "users", stats.Users, "failures", stats.SyncFailures, "reminders", stats.RemindersSent)
}
