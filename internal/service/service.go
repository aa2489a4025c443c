package service

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/push"
	"alcyxob/fitcoach/internal/repository"
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrStudentNotFound      = errors.New("student user not found")
	ErrStudentNotRole       = errors.New("user found but is not a student")
	ErrStudentAlreadyTaken  = errors.New("student is already assigned to another coach")
	ErrStudentNotManaged    = errors.New("student is not managed by this coach")
	ErrNoCoachAssigned      = errors.New("student has no coach assigned")
	ErrSummaryNotFound      = errors.New("weekly summary not found")
	ErrConfirmationRequired = errors.New("completing a summary must be confirmed")
	ErrEmptyText            = errors.New("text cannot be empty")
	ErrPlanNotFound         = errors.New("plan not found")
	ErrPlanAccessDenied     = errors.New("access denied to this plan")
	ErrNoActivePlan         = errors.New("no active plan of this kind")
)

// Pusher delivers best-effort push messages. *push.Notifier implements it.
type Pusher interface {
	Notify(ctx context.Context, userID primitive.ObjectID, msg push.Message)
}

// Clock returns the current instant. Services take one so tests can pin time.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

type noopPusher struct{}

func (noopPusher) Notify(context.Context, primitive.ObjectID, push.Message) {}

func orNoop(p Pusher) Pusher {
	if p == nil {
		return noopPusher{}
	}
	return p
}

func orDefault(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}

// loadStudent fetches a user and checks the student role.
func loadStudent(ctx context.Context, users repository.UserRepository, studentID primitive.ObjectID) (*domain.User, error) {
	student, err := users.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	if !student.IsStudent() {
		return nil, ErrStudentNotRole
	}
	return student, nil
}

// loadManagedStudent fetches a student and checks they belong to coachID.
func loadManagedStudent(ctx context.Context, users repository.UserRepository, coachID, studentID primitive.ObjectID) (*domain.User, error) {
	student, err := loadStudent(ctx, users, studentID)
	if err != nil {
		return nil, err
	}
	if !student.CoachedBy(coachID) {
		return nil, ErrStudentNotManaged
	}
	return student, nil
}

// coachOf returns the student's assigned coach id.
func coachOf(student *domain.User) (primitive.ObjectID, error) {
	if student.CoachID == nil || *student.CoachID == primitive.NilObjectID {
		return primitive.NilObjectID, ErrNoCoachAssigned
	}
	return *student.CoachID, nil
}

func mapSummaryErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrSummaryNotFound
	}
	return err
}
