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

const (
	// Bodies are limited in bytes after trimming.
	maxMessageLength        = 4000
	defaultConversationSize = 100
)

// MessageService carries the direct conversation between a coach and one
// student. A coach may only write to students assigned to them; a student
// always writes to their own coach.
type MessageService interface {
	SendFromCoach(ctx context.Context, coachID, studentID primitive.ObjectID, body string) (*domain.Message, error)
	SendFromStudent(ctx context.Context, studentID primitive.ObjectID, body string) (*domain.Message, error)
	ConversationForCoach(ctx context.Context, coachID, studentID primitive.ObjectID, limit int64) ([]domain.Message, error)
	ConversationForStudent(ctx context.Context, studentID primitive.ObjectID, limit int64) ([]domain.Message, error)
}

type messageService struct {
	users         repository.UserRepository
	messages      repository.MessageRepository
	notifications repository.NotificationRepository
	pusher        Pusher
	now           Clock
	log           *slog.Logger
}

// NewMessageService creates a new instance of messageService.
func NewMessageService(
	users repository.UserRepository,
	messages repository.MessageRepository,
	notifications repository.NotificationRepository,
	pusher Pusher,
	now Clock,
	log *slog.Logger,
) MessageService {
	if now == nil {
		now = systemClock
	}
	return &messageService{
		users:         users,
		messages:      messages,
		notifications: notifications,
		pusher:        orNoop(pusher),
		now:           now,
		log:           orDefault(log),
	}
}

// SendFromCoach writes to one of the coach's students and pushes a preview.
// It does not touch the coach's notification counters.
func (s *messageService) SendFromCoach(ctx context.Context, coachID, studentID primitive.ObjectID, body string) (*domain.Message, error) {
	if _, err := loadManagedStudent(ctx, s.users, coachID, studentID); err != nil {
		return nil, err
	}
	msg, err := s.store(ctx, coachID, studentID, coachID, body)
	if err != nil {
		return nil, err
	}
	s.pusher.Notify(ctx, studentID, push.Message{
		Title: "New message from your coach",
		Body:  preview(msg.Body),
		Link:  "/student/messages",
	})
	return msg, nil
}

// SendFromStudent writes to the student's coach and raises the message flag.
func (s *messageService) SendFromStudent(ctx context.Context, studentID primitive.ObjectID, body string) (*domain.Message, error) {
	student, err := loadStudent(ctx, s.users, studentID)
	if err != nil {
		return nil, err
	}
	coachID, err := coachOf(student)
	if err != nil {
		return nil, err
	}
	msg, err := s.store(ctx, coachID, studentID, studentID, body)
	if err != nil {
		return nil, err
	}
	recordNotification(ctx, s.notifications, s.log, coachID, studentID, domain.CategoryMessage, msg.CreatedAt)
	return msg, nil
}

func (s *messageService) store(ctx context.Context, coachID, studentID, senderID primitive.ObjectID, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyText
	}
	if len(body) > maxMessageLength {
		verr := domain.NewValidationError()
		verr.Add("body", "message is too long")
		return nil, verr
	}
	msg := &domain.Message{
		CoachID:   coachID,
		StudentID: studentID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
	id, err := s.messages.Create(ctx, msg)
	if err != nil {
		return nil, err
	}
	msg.ID = id
	return msg, nil
}

// ConversationForCoach returns the newest messages with a managed student.
// A limit outside (0, 500] falls back to the default page.
func (s *messageService) ConversationForCoach(ctx context.Context, coachID, studentID primitive.ObjectID, limit int64) ([]domain.Message, error) {
	if _, err := loadManagedStudent(ctx, s.users, coachID, studentID); err != nil {
		return nil, err
	}
	return s.messages.ListConversation(ctx, coachID, studentID, conversationLimit(limit))
}

// ConversationForStudent is ConversationForCoach seen from the student.
func (s *messageService) ConversationForStudent(ctx context.Context, studentID primitive.ObjectID, limit int64) ([]domain.Message, error) {
	student, err := loadStudent(ctx, s.users, studentID)
	if err != nil {
		return nil, err
	}
	coachID, err := coachOf(student)
	if err != nil {
		return nil, err
	}
	return s.messages.ListConversation(ctx, coachID, studentID, conversationLimit(limit))
}

func conversationLimit(limit int64) int64 {
	if limit <= 0 || limit > 500 {
		return defaultConversationSize
	}
	return limit
}

// preview shortens a body to 120 runes for push payloads.
func preview(body string) string {
	r := []rune(body)
	if len(r) <= 120 {
		return body
	}
	return string(r[:120]) + "…"
}
