package service

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/repository"
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RosterEntry is a student row in the coach's list with its badge.
type RosterEntry struct {
	domain.User
	Notifications CountsView `json:"notifications"`
}

// RosterService manages which students a coach reviews.
type RosterService interface {
	AddStudentByEmail(ctx context.Context, coachID primitive.ObjectID, studentEmail string) (*domain.User, error)
	ListStudents(ctx context.Context, coachID primitive.ObjectID) ([]RosterEntry, error)
}

type rosterService struct {
	users         repository.UserRepository
	notifications repository.NotificationRepository
	log           *slog.Logger
}

// NewRosterService creates a new instance of rosterService.
func NewRosterService(users repository.UserRepository, notifications repository.NotificationRepository, log *slog.Logger) RosterService {
	return &rosterService{users: users, notifications: notifications, log: orDefault(log)}
}

// AddStudentByEmail finds a student by email and assigns them to the coach.
func (s *rosterService) AddStudentByEmail(ctx context.Context, coachID primitive.ObjectID, studentEmail string) (*domain.User, error) {
	studentEmail = strings.ToLower(strings.TrimSpace(studentEmail))
	if coachID == primitive.NilObjectID || studentEmail == "" {
		return nil, errors.New("coach ID and student email are required")
	}

	student, err := s.users.GetByEmail(ctx, studentEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	if !student.IsStudent() {
		return nil, ErrStudentNotRole
	}

	if student.CoachID != nil && *student.CoachID != primitive.NilObjectID {
		if *student.CoachID == coachID {
			student.PasswordHash = ""
			return student, nil
		}
		return nil, ErrStudentAlreadyTaken
	}

	// Two writes: the coach's list first, then the student's coach pointer.
	// Queue queries only rely on the student's pointer.
	if err := s.users.AddStudentIDToCoach(ctx, coachID, student.ID); err != nil {
		return nil, err
	}
	if err := s.users.SetCoachForStudent(ctx, student.ID, coachID); err != nil {
		s.log.Error("roster_link_incomplete", "coach_id", coachID.Hex(), "student_id", student.ID.Hex(), "error", err)
		return nil, err
	}

	student.CoachID = &coachID
	student.PasswordHash = ""
	s.log.Info("student_added", "coach_id", coachID.Hex(), "student_id", student.ID.Hex())
	return student, nil
}

// ListStudents returns the coach's students with their notification badges.
func (s *rosterService) ListStudents(ctx context.Context, coachID primitive.ObjectID) ([]RosterEntry, error) {
	students, err := s.users.GetStudentsByCoachID(ctx, coachID)
	if err != nil {
		return nil, err
	}
	counts, err := s.notifications.CountUnviewedByCoach(ctx, coachID)
	if err != nil {
		s.log.Warn("roster_counts_failed", "coach_id", coachID.Hex(), "error", err)
		counts = nil
	}

	entries := make([]RosterEntry, 0, len(students))
	for _, st := range students {
		st.PasswordHash = ""
		entries = append(entries, RosterEntry{User: st, Notifications: newCountsView(counts[st.ID])})
	}
	return entries, nil
}
