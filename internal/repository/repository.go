package repository

import (
	"alcyxob/fitcoach/internal/domain"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDuplicate    = RepositoryError("duplicate")
	ErrSlotTaken    = RepositoryError("submission slot already taken")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	AddStudentIDToCoach(ctx context.Context, coachID, studentID primitive.ObjectID) error
	GetStudentsByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error)
	SetCoachForStudent(ctx context.Context, studentID, coachID primitive.ObjectID) error
	SetTelegramChatID(ctx context.Context, userID primitive.ObjectID, chatID int64) error
}

// WeeklySummaryRepository stores weekly summaries. Implementations must
// reject malformed rows on read (domain.ErrMalformedSummary).
type WeeklySummaryRepository interface {
	Create(ctx context.Context, summary *domain.WeeklySummary) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WeeklySummary, error)
	// GetLatestByStudent returns the most recent summary by createdAt, or ErrNotFound.
	GetLatestByStudent(ctx context.Context, studentID primitive.ObjectID) (*domain.WeeklySummary, error)
	ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.WeeklySummary, error)
	// ListByCoach returns the coach's summaries ordered by taskCompleted asc,
	// submissionOrder asc. completed filters the group when non-nil.
	ListByCoach(ctx context.Context, coachID primitive.ObjectID, completed *bool) ([]domain.WeeklySummary, error)
	// ListDueOn returns summaries whose nextAllowedDate equals day.
	ListDueOn(ctx context.Context, day time.Time) ([]domain.WeeklySummary, error)
	// MarkComplete sets taskCompleted, taskCompletedAt, viewedByCoach and
	// viewedAt in one update, only if the summary is not completed yet.
	// It returns false when the summary was already completed.
	MarkComplete(ctx context.Context, id, coachID primitive.ObjectID, at time.Time) (bool, error)
	MarkViewed(ctx context.Context, id, coachID primitive.ObjectID, at time.Time) error
	SetFeedback(ctx context.Context, id, coachID primitive.ObjectID, feedback string, at time.Time) error
	// SetPrivateNotes stores the notes, or removes them when notes is nil.
	SetPrivateNotes(ctx context.Context, id, coachID primitive.ObjectID, notes *string) error
	SetPublicObservation(ctx context.Context, id, coachID primitive.ObjectID, text string, at time.Time) error
}

// SequenceRepository hands out strictly increasing numbers per key.
type SequenceRepository interface {
	Next(ctx context.Context, key string) (int64, error)
}

// SubmissionSlotRepository serialises weekly submissions per student.
type SubmissionSlotRepository interface {
	// Claim moves the student's slot to next if it is free on today
	// (stored date <= today or no slot yet). It returns ErrSlotTaken otherwise.
	Claim(ctx context.Context, studentID primitive.ObjectID, today, next time.Time) error
	// Release reopens a slot claimed with next, used when the insert fails.
	Release(ctx context.Context, studentID primitive.ObjectID, claimed, reopenOn time.Time) error
}

// NotificationRepository stores the per-category unviewed flags.
type NotificationRepository interface {
	// Record adds an unviewed entry unless one already exists for the triple.
	Record(ctx context.Context, coachID, studentID primitive.ObjectID, category domain.Category, at time.Time) error
	// CountUnviewed tallies unviewed entries per category for the pair.
	CountUnviewed(ctx context.Context, coachID, studentID primitive.ObjectID) (domain.Counts, error)
	// CountUnviewedByCoach tallies unviewed entries for each of the coach's students.
	CountUnviewedByCoach(ctx context.Context, coachID primitive.ObjectID) (map[primitive.ObjectID]domain.Counts, error)
	// MarkViewed flags every unviewed entry of the triple as viewed and
	// returns how many were updated.
	MarkViewed(ctx context.Context, coachID, studentID primitive.ObjectID, category domain.Category, at time.Time) (int64, error)
}

// PlanRepository defines the interface for diet/workout/protocol plans.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error)
	ListByStudent(ctx context.Context, studentID primitive.ObjectID, kind domain.PlanKind) ([]domain.Plan, error)
	ListActive(ctx context.Context, studentID primitive.ObjectID, kind domain.PlanKind) ([]domain.Plan, error)
	// DeactivateOthers clears isActive on every plan of the kind except keepID.
	DeactivateOthers(ctx context.Context, studentID primitive.ObjectID, kind domain.PlanKind, keepID primitive.ObjectID) error
	Activate(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// PhotoRepository defines the interface for ad-hoc progress photo metadata.
type PhotoRepository interface {
	Create(ctx context.Context, photo *domain.Photo) (primitive.ObjectID, error)
	ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.Photo, error)
}

// MessageRepository defines the interface for coach/student messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) (primitive.ObjectID, error)
	// ListConversation returns messages oldest first.
	ListConversation(ctx context.Context, coachID, studentID primitive.ObjectID, limit int64) ([]domain.Message, error)
}
