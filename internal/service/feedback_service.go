package service

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/push"
	"alcyxob/fitcoach/internal/repository"
	"context"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FeedbackService writes the coach's side of a summary. None of its
// operations change queue order.
type FeedbackService interface {
	SendFeedback(ctx context.Context, coachID, summaryID primitive.ObjectID, text string) (*domain.WeeklySummary, error)
	SetPrivateNotes(ctx context.Context, coachID, summaryID primitive.ObjectID, notes string) (*domain.WeeklySummary, error)
	SendPublicObservation(ctx context.Context, coachID, summaryID primitive.ObjectID, text string) (*domain.WeeklySummary, error)
}

type feedbackService struct {
	summaries repository.WeeklySummaryRepository
	pusher    Pusher
	now       Clock
	log       *slog.Logger
}

// NewFeedbackService creates a new instance of feedbackService.
func NewFeedbackService(summaries repository.WeeklySummaryRepository, pusher Pusher, now Clock, log *slog.Logger) FeedbackService {
	if now == nil {
		now = systemClock
	}
	return &feedbackService{summaries: summaries, pusher: orNoop(pusher), now: now, log: orDefault(log)}
}

// SendFeedback stores the coach's reply and pushes it to the student.
func (s *feedbackService) SendFeedback(ctx context.Context, coachID, summaryID primitive.ObjectID, text string) (*domain.WeeklySummary, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if err := s.summaries.SetFeedback(ctx, summaryID, coachID, text, s.now().UTC()); err != nil {
		return nil, mapSummaryErr(err)
	}
	summary, err := s.summaries.GetByID(ctx, summaryID)
	if err != nil {
		return nil, mapSummaryErr(err)
	}
	s.log.Info("feedback_sent", "summary_id", summaryID.Hex(), "coach_id", coachID.Hex())
	s.pusher.Notify(ctx, summary.StudentID, push.Message{
		Title: "Your coach replied",
		Body:  "There is new feedback on your weekly summary.",
		Link:  "/student/summaries/" + summaryID.Hex(),
	})
	return summary, nil
}

// SetPrivateNotes stores notes only the coach can read. Blank notes remove
// the field.
func (s *feedbackService) SetPrivateNotes(ctx context.Context, coachID, summaryID primitive.ObjectID, notes string) (*domain.WeeklySummary, error) {
	var stored *string
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		stored = &trimmed
	}
	if err := s.summaries.SetPrivateNotes(ctx, summaryID, coachID, stored); err != nil {
		return nil, mapSummaryErr(err)
	}
	summary, err := s.summaries.GetByID(ctx, summaryID)
	return summary, mapSummaryErr(err)
}

// SendPublicObservation posts a note the student sees for a limited time.
func (s *feedbackService) SendPublicObservation(ctx context.Context, coachID, summaryID primitive.ObjectID, text string) (*domain.WeeklySummary, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if err := s.summaries.SetPublicObservation(ctx, summaryID, coachID, text, s.now().UTC()); err != nil {
		return nil, mapSummaryErr(err)
	}
	summary, err := s.summaries.GetByID(ctx, summaryID)
	if err != nil {
		return nil, mapSummaryErr(err)
	}
	s.pusher.Notify(ctx, summary.StudentID, push.Message{
		Title: "New note from your coach",
		Body:  text,
		Link:  "/student/summaries/" + summaryID.Hex(),
	})
	return summary, nil
}
