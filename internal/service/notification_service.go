package service

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/repository"
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CountsView is the per-student counter payload of the detail view.
type CountsView struct {
	domain.Counts
	HasAllNotifications bool         `json:"hasAllNotifications"`
	Badge               domain.Badge `json:"badge"`
}

// NotificationService reads and clears the coach's per-student counters.
// Producers record entries through the repository directly.
type NotificationService interface {
	Counts(ctx context.Context, coachID, studentID primitive.ObjectID) (CountsView, error)
	// MarkViewed is called when the coach focuses a detail tab. tab is the
	// tab name; tabs without a category return domain.ErrInvalidCategory.
	MarkViewed(ctx context.Context, coachID, studentID primitive.ObjectID, tab string) (CountsView, error)
}

type notificationService struct {
	users         repository.UserRepository
	notifications repository.NotificationRepository
	now           Clock
	log           *slog.Logger
}

// NewNotificationService creates a new instance of notificationService.
func NewNotificationService(users repository.UserRepository, notifications repository.NotificationRepository, now Clock, log *slog.Logger) NotificationService {
	if now == nil {
		now = systemClock
	}
	return &notificationService{users: users, notifications: notifications, now: now, log: orDefault(log)}
}

// Counts returns the unviewed counts for one of the coach's students.
func (s *notificationService) Counts(ctx context.Context, coachID, studentID primitive.ObjectID) (CountsView, error) {
	if _, err := loadManagedStudent(ctx, s.users, coachID, studentID); err != nil {
		return CountsView{}, err
	}
	return s.counts(ctx, coachID, studentID)
}

// MarkViewed clears the category behind tab and returns the counts left.
// The category is checked before any lookup so an unknown tab never writes.
func (s *notificationService) MarkViewed(ctx context.Context, coachID, studentID primitive.ObjectID, tab string) (CountsView, error) {
	cat, err := domain.ParseCategory(tab)
	if err != nil {
		return CountsView{}, err
	}
	if _, err := loadManagedStudent(ctx, s.users, coachID, studentID); err != nil {
		return CountsView{}, err
	}
	n, err := s.notifications.MarkViewed(ctx, coachID, studentID, cat, s.now().UTC())
	if err != nil {
		return CountsView{}, err
	}
	if n > 0 {
		s.log.Debug("notifications_viewed", "coach_id", coachID.Hex(), "student_id", studentID.Hex(), "category", cat, "count", n)
	}
	return s.counts(ctx, coachID, studentID)
}

func (s *notificationService) counts(ctx context.Context, coachID, studentID primitive.ObjectID) (CountsView, error) {
	c, err := s.notifications.CountUnviewed(ctx, coachID, studentID)
	if err != nil {
		return CountsView{}, err
	}
	return newCountsView(c), nil
}

func newCountsView(c domain.Counts) CountsView {
	return CountsView{Counts: c, HasAllNotifications: c.HasAll(), Badge: c.Badge()}
}
