package service

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/push"
	"alcyxob/fitcoach/internal/repository"
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReminderService tells students when their cooldown is over.
type ReminderService interface {
	// SendCooldownReminders pushes to every student whose latest summary
	// reopens the gate today and returns how many were notified.
	SendCooldownReminders(ctx context.Context) (int, error)
}

type reminderService struct {
	summaries repository.WeeklySummaryRepository
	pusher    Pusher
	loc       *time.Location
	now       Clock
	log       *slog.Logger
}

// NewReminderService creates a new instance of reminderService. loc is the
// timezone the cooldown dates are read in and defaults to UTC.
func NewReminderService(summaries repository.WeeklySummaryRepository, pusher Pusher, loc *time.Location, now Clock, log *slog.Logger) ReminderService {
	if now == nil {
		now = systemClock
	}
	if loc == nil {
		loc = time.UTC
	}
	return &reminderService{summaries: summaries, pusher: orNoop(pusher), loc: loc, now: now, log: orDefault(log)}
}

// SendCooldownReminders sends at most one push per student. Lookup failures
// skip that student and never abort the run.
func (s *reminderService) SendCooldownReminders(ctx context.Context) (int, error) {
	today := domain.DateOf(s.now().In(s.loc))
	due, err := s.summaries.ListDueOn(ctx, today)
	if err != nil {
		return 0, err
	}

	seen := map[primitive.ObjectID]bool{}
	sent := 0
	for _, sum := range due {
		if seen[sum.StudentID] {
			continue
		}
		seen[sum.StudentID] = true

		// A newer summary means the student already moved on.
		latest, err := s.summaries.GetLatestByStudent(ctx, sum.StudentID)
		if err != nil {
			s.log.Warn("reminder_latest_lookup_failed", "student_id", sum.StudentID.Hex(), "error", err)
			continue
		}
		if latest.ID != sum.ID {
			continue
		}
		s.pusher.Notify(ctx, sum.StudentID, push.Message{
			Title: "Weekly summary",
			Body:  "You can send your weekly summary again today.",
			Link:  "/student/summaries/new",
		})
		sent++
	}
	s.log.Info("cooldown_reminders_sent", "date", domain.FormatDate(today), "count", sent)
	return sent, nil
}
