package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GregMSThompson/utilization-pilot/internal/bootstrap"
	"github.com/GregMSThompson/utilization-pilot/internal/config"
	"github.com/GregMSThompson/utilization-pilot/internal/handlers"
	"github.com/GregMSThompson/utilization-pilot/internal/middleware"
	"github.com/GregMSThompson/utilization-pilot/internal/notify"
	"github.com/GregMSThompson/utilization-pilot/internal/ratelimit"
	"github.com/GregMSThompson/utilization-pilot/internal/response"
	"github.com/GregMSThompson/utilization-pilot/internal/router"
	"github.com/GregMSThompson/utilization-pilot/internal/scheduler"
	"github.com/GregMSThompson/utilization-pilot/internal/services"
	"github.com/GregMSThompson/utilization-pilot/internal/store"
	"github.com/GregMSThompson/utilization-pilot/internal/utilization"
)

const shutdownTimeout = 15 * time.Second

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
	astore := store.NewAdvisorStore(bs.Firestore)
	vault := bs.TokenVault(cfg)
	hstore, hcloser, err := bs.HistoryStore(ctx, cfg)
	exitOnError("history store failed", err, bs.Log)
	if hcloser != nil {
		defer hcloser.Close()
	}

	// services
	engine := utilization.NewEngine(bootstrap.EngineOptions(cfg))
	userv := services.NewUserService(ustore)
	plserv := services.NewPlaidService(bs.PlaidAdapter, bstore, acstore, tstore, istore, vault)
	if cfg.PlaidVerifyWebhooks {
		plserv.WithWebhookVerifier(services.NewWebhookVerifier(bs.PlaidAdapter))
	}
	bserv := services.NewBankService(bstore, tstore, acstore, istore, vault, bs.PlaidAdapter)
	acserv := services.NewAccountService(acstore, tstore)
	dserv := services.NewDashboardService(acstore, ustore, hstore, engine)
	adserv := services.NewAdvisorService(bs.VertexAdapter, dserv, astore, cfg.AITTL)

	// scheduler
	var sched *scheduler.Scheduler
	schedOpts := scheduler.Options{Schedule: cfg.SyncSchedule, RPS: cfg.SyncRPS, ReminderDays: cfg.ReminderDays}
	if cfg.MailEnabled() {
		mailer := notify.NewSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SenderEmail,
		})
		sched, err = scheduler.New(bs.Log, ustore, plserv, dserv, mailer, schedOpts)
	} else {
		bs.Log.Info("reminder mail disabled, SMTP_HOST not set")
		sched, err = scheduler.New(bs.Log, ustore, plserv, dserv, nil, schedOpts)
	}
	exitOnError("scheduler setup failed", err, bs.Log)
	sched.Start()

	// response handler
	rh := response.New(bs.Log)

	// middleware
	auth := middleware.NewMiddleware(bs.Firebase, rh)
	limiter := ratelimit.New(bs.RateLimitStore(cfg),
		ratelimit.Rule{Limit: cfg.RateLimitReads, Window: cfg.RateLimitWindow},
		ratelimit.Rule{Limit: cfg.RateLimitWrites, Window: cfg.RateLimitWindow},
	)
	// a wider per-address budget is charged before token verification
	ipLimiter := ratelimit.New(bs.RateLimitStore(cfg),
		ratelimit.Rule{Limit: cfg.RateLimitIPReads, Window: cfg.RateLimitWindow},
		ratelimit.Rule{Limit: cfg.RateLimitIPWrites, Window: cfg.RateLimitWindow},
	).WithPrefix("edge:")
	mw := router.Middlewares{
		Logger:      middleware.NewLoggerMiddleware(bs.Log).LoggerMiddleware,
		Auth:        auth.FirebaseAuth,
		RateLimit:   middleware.NewRateLimitMiddleware(limiter, rh).RateLimit,
		IPRateLimit: middleware.NewRateLimitMiddleware(ipLimiter, rh).RateLimitByIP,
	}

	// dependancies
	deps := new(handlers.Deps)
	deps.Log = bs.Log
	deps.ResponseHandler = rh
	deps.Environment = cfg.Environment
	deps.UserSvc = userv
	deps.PlaidSvc = plserv
	deps.BankSvc = bserv
	deps.AccountSvc = acserv
	deps.DashboardSvc = dserv
	deps.AdvisorSvc = adserv

	// router
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.NewRouter(deps, mw, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		bs.Log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			bs.Log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	bs.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		bs.Log.Error("server shutdown failed", "error", err)
	}
	sched.Stop(shutdownCtx)
}
