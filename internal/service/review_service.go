package service

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/repository"
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QueueFilter selects which part of the coach queue to list.
type QueueFilter string

// Queue filters.
const (
	QueuePending   QueueFilter = "pending"
	QueueCompleted QueueFilter = "completed"
	QueueAll       QueueFilter = "all"
)

// ParseQueueFilter accepts "", pending, completed and all. "" means all.
func ParseQueueFilter(s string) (QueueFilter, error) {
	switch QueueFilter(s) {
	case "", QueueAll:
		return QueueAll, nil
	case QueuePending, QueueCompleted:
		return QueueFilter(s), nil
	}
	return "", fmt.Errorf("unknown queue filter %q", s)
}

func (f QueueFilter) completed() *bool {
	var b bool
	switch f {
	case QueuePending:
		b = false
	case QueueCompleted:
		b = true
	default:
		return nil
	}
	return &b
}

// QueueEntry is a summary as the coach sees it in the queue.
type QueueEntry struct {
	domain.WeeklySummary
	State       domain.SummaryState `json:"state"`
	StudentName string              `json:"studentName"`
	// Position is the 1-based place among pending entries, 0 once completed.
	Position int `json:"position"`
}

// ReviewService is the coach's review queue. Summaries are listed pending
// first and in submission order; feedback never reorders them.
type ReviewService interface {
	ListForCoach(ctx context.Context, coachID primitive.ObjectID, filter QueueFilter) ([]QueueEntry, error)
	Open(ctx context.Context, coachID, summaryID primitive.ObjectID) (*domain.WeeklySummary, error)
	MarkComplete(ctx context.Context, coachID, summaryID primitive.ObjectID, confirmed bool) (*domain.WeeklySummary, error)
}

type reviewService struct {
	users     repository.UserRepository
	summaries repository.WeeklySummaryRepository
	now       Clock
	log       *slog.Logger
}

// NewReviewService creates a new instance of reviewService.
func NewReviewService(users repository.UserRepository, summaries repository.WeeklySummaryRepository, now Clock, log *slog.Logger) ReviewService {
	if now == nil {
		now = systemClock
	}
	return &reviewService{users: users, summaries: summaries, now: now, log: orDefault(log)}
}

// ListForCoach returns the queue pending first, each group in arrival order.
func (s *reviewService) ListForCoach(ctx context.Context, coachID primitive.ObjectID, filter QueueFilter) ([]QueueEntry, error) {
	summaries, err := s.summaries.ListByCoach(ctx, coachID, filter.completed())
	if err != nil {
		return nil, err
	}
	domain.SortQueue(summaries)

	names := map[primitive.ObjectID]string{}
	students, err := s.users.GetStudentsByCoachID(ctx, coachID)
	if err != nil {
		// Names are decoration; the queue is still usable without them.
		s.log.Warn("queue_student_names_failed", "coach_id", coachID.Hex(), "error", err)
	}
	for _, st := range students {
		names[st.ID] = st.Name
	}

	entries := make([]QueueEntry, 0, len(summaries))
	position := 0
	for _, sum := range summaries {
		e := QueueEntry{WeeklySummary: sum, State: sum.State(), StudentName: names[sum.StudentID]}
		if !sum.TaskCompleted {
			position++
			e.Position = position
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Open returns one of the coach's summaries and records the first view.
func (s *reviewService) Open(ctx context.Context, coachID, summaryID primitive.ObjectID) (*domain.WeeklySummary, error) {
	summary, err := s.owned(ctx, coachID, summaryID)
	if err != nil {
		return nil, err
	}
	if !summary.ViewedByCoach {
		at := s.now().UTC()
		if err := s.summaries.MarkViewed(ctx, summaryID, coachID, at); err != nil {
			return nil, mapSummaryErr(err)
		}
		summary.ViewedByCoach = true
		summary.ViewedAt = &at
	}
	return summary, nil
}

// MarkComplete moves a summary to the completed group. The caller must pass
// confirmed=true. Completing twice leaves the first completion untouched.
func (s *reviewService) MarkComplete(ctx context.Context, coachID, summaryID primitive.ObjectID, confirmed bool) (*domain.WeeklySummary, error) {
	if !confirmed {
		return nil, ErrConfirmationRequired
	}
	changed, err := s.summaries.MarkComplete(ctx, summaryID, coachID, s.now().UTC())
	if err != nil {
		return nil, mapSummaryErr(err)
	}
	if changed {
		s.log.Info("summary_completed", "summary_id", summaryID.Hex(), "coach_id", coachID.Hex())
	}
	return s.owned(ctx, coachID, summaryID)
}

func (s *reviewService) owned(ctx context.Context, coachID, summaryID primitive.ObjectID) (*domain.WeeklySummary, error) {
	summary, err := s.summaries.GetByID(ctx, summaryID)
	if err != nil {
		return nil, mapSummaryErr(err)
	}
	if summary.CoachID != coachID {
		return nil, ErrSummaryNotFound
	}
	return summary, nil
}
