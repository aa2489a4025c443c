// Package scheduler runs the periodic jobs of the server.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ReminderSender is the job the daily reminder entry runs.
type ReminderSender interface {
	SendCooldownReminders(ctx context.Context) (int, error)
}

// jobTimeout bounds one run so a stuck push cannot pile up runs.
const jobTimeout = 2 * time.Minute

type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

// New builds a scheduler evaluating specs in loc. Overlapping runs of the
// same job are skipped.
func New(loc *time.Location, log *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	logger := cronLogger{log: log.With("component", "scheduler")}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		log: log,
	}
}

// AddReminders registers the cooldown reminder job under spec.
func (s *Scheduler) AddReminders(spec string, reminders ReminderSender) error {
	_, err := s.cron.AddFunc(spec, func() {
		RunReminders(context.Background(), reminders, s.log)
	})
	return err
}

// RunReminders executes one reminder pass and logs the outcome.
func RunReminders(ctx context.Context, reminders ReminderSender, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	n, err := reminders.SendCooldownReminders(ctx)
	if err != nil {
		log.Error("cooldown_reminders_failed", "error", err)
		return
	}
	log.Debug("cooldown_reminders_done", "count", n)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler_started", "jobs", len(s.cron.Entries()))
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler_stop_timeout")
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
