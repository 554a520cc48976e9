// Package scheduler refreshes every user's balances on a cron schedule and
// mails paydown reminders for statements that are about to close.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/GregMSThompson/utilization-pilot/internal/dto"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
	"github.com/GregMSThompson/utilization-pilot/internal/utilization"
	"github.com/GregMSThompson/utilization-pilot/pkg/logger"
)

type userLister interface {
	ListUIDs(ctx context.Context, fn func(uid string) error) error
	GetUser(ctx context.Context, uid string) (*models.User, error)
	MarkReminded(ctx context.Context, uid string, marks map[string]string) error
}

type accountSyncer interface {
	SyncAccounts(ctx context.Context, uid string, bankID *string) (dto.AccountSyncResult, error)
}

type evaluator interface {
	Evaluate(ctx context.Context, uid string) (utilization.Result, error)
}

type reminderSender interface {
	SendPaydownReminder(ctx context.Context, to, name string, recs []utilization.Recommendation) error
}

const markLayout = "2006-01-02"

type Options struct {
	Schedule     string
	RPS          float64
	ReminderDays int
}

// RunStats summarises one pass over all users.
type RunStats struct {
	Users         int
	SyncFailures  int
	RemindersSent int
}

type Scheduler struct {
	log          *slog.Logger
	cron         *cron.Cron
	users        userLister
	syncer       accountSyncer
	eval         evaluator
	mailer       reminderSender
	limiter      *rate.Limiter
	reminderDays int
	running      atomic.Bool
}

// New registers the sync job. mailer may be nil to disable reminders.
func New(log *slog.Logger, users userLister, syncer accountSyncer, eval evaluator, mailer reminderSender, opts Options) (*Scheduler, error) {
	rps := opts.RPS
	if rps <= 0 {
		rps = 1
	}
	s := &Scheduler{
		log:          log,
		users:        users,
		syncer:       syncer,
		eval:         eval,
		mailer:       mailer,
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
		reminderDays: opts.ReminderDays,
	}

	s.cron = cron.New(cron.WithLogger(cronLogger{log}), cron.WithChain(cron.Recover(cronLogger{log})))
	if _, err := s.cron.AddFunc(opts.Schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", opts.Schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.log.Info("scheduler started", "jobs", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop waits for a running pass to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) tick() {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous sync still running, skipping")
		return
	}
	defer s.running.Store(false)

	ctx := logger.ToContext(context.Background(), s.log.With("job", "scheduled_sync"))
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Error("scheduled sync failed", "error", err)
	}
}

// RunOnce syncs and evaluates every user. Per-user failures are logged and skipped.
func (s *Scheduler) RunOnce(ctx context.Context) (RunStats, error) {
	log := logger.FromContext(ctx)
	stats := RunStats{}
	start := time.Now()

	err := s.users.ListUIDs(ctx, func(uid string) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		stats.Users++

		uctx := logger.ToContext(ctx, log.With("uid", uid))
		sent, err := s.processUser(uctx, uid)
		if err != nil {
			stats.SyncFailures++
			logger.FromContext(uctx).Warn("user sync failed", "error", err)
			return nil
		}
		if sent {
			stats.RemindersSent++
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	log.Info("scheduled sync completed",
		"users", stats.Users,
		"failures", stats.SyncFailures,
		"reminders", stats.RemindersSent,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return stats, nil
}

func (s *Scheduler) processUser(ctx context.Context, uid string) (bool, error) {
	if _, err := s.syncer.SyncAccounts(ctx, uid, nil); err != nil {
		return false, err
	}
	if s.mailer == nil {
		return false, nil
	}

	user, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return false, err
	}
	if !user.Settings.RemindersEnabled || user.Email == "" {
		return false, nil
	}

	res, err := s.eval.Evaluate(ctx, uid)
	if err != nil {
		return false, err
	}
	due := Unreminded(DueReminders(res.Recommendations, s.reminderDays), user.ReminderMarks)
	if len(due) == 0 {
		return false, nil
	}
	if err := s.mailer.SendPaydownReminder(ctx, user.Email, user.FirstName, due); err != nil {
		return false, err
	}

	marks := make(map[string]string, len(due))
	for _, r := range due {
		marks[r.CardID] = r.CloseDate.Format(markLayout)
	}
	if err := s.users.MarkReminded(ctx, uid, marks); err != nil {
		logger.FromContext(ctx).Warn("failed to record reminder marks", "error", err)
	}
	return true, nil
}

// Unreminded drops recommendations already reminded for the same close date.
func Unreminded(recs []utilization.Recommendation, marks map[string]string) []utilization.Recommendation {
	out := make([]utilization.Recommendation, 0, len(recs))
	for _, r := range recs {
		if marks[r.CardID] == r.CloseDate.Format(markLayout) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// DueReminders keeps high and medium priority recommendations closing within days.
func DueReminders(recs []utilization.Recommendation, days int) []utilization.Recommendation {
	out := make([]utilization.Recommendation, 0, len(recs))
	for _, r := range recs {
		if r.Priority == utilization.PriorityLow {
			continue
		}
		if r.DaysUntilClose <= days {
			out = append(out, r)
		}
	}
	return out
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
