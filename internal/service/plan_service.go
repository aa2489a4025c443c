package service

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/push"
	"alcyxob/fitcoach/internal/repository"
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// mdRenderer escapes raw HTML in plan content (WithUnsafe is not set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// ActivePlanView is the student's current plan with its content rendered.
type ActivePlanView struct {
	domain.Plan
	HTML string `json:"html"`
}

// PlanService manages diet and training plans. Each student has at most one
// active plan per kind.
type PlanService interface {
	Create(ctx context.Context, coachID, studentID primitive.ObjectID, kind domain.PlanKind, title, content string) (*domain.Plan, error)
	List(ctx context.Context, coachID, studentID primitive.ObjectID, kind domain.PlanKind) ([]domain.Plan, error)
	Activate(ctx context.Context, coachID, planID primitive.ObjectID) (*domain.Plan, error)
	ActivePlan(ctx context.Context, studentID primitive.ObjectID, kind domain.PlanKind) (*ActivePlanView, error)
}

type planService struct {
	users         repository.UserRepository
	plans         repository.PlanRepository
	notifications repository.NotificationRepository
	pusher        Pusher
	now           Clock
	log           *slog.Logger
}

// NewPlanService creates a new instance of planService.
func NewPlanService(
	users repository.UserRepository,
	plans repository.PlanRepository,
	notifications repository.NotificationRepository,
	pusher Pusher,
	now Clock,
	log *slog.Logger,
) PlanService {
	if now == nil {
		now = systemClock
	}
	return &planService{
		users:         users,
		plans:         plans,
		notifications: notifications,
		pusher:        orNoop(pusher),
		now:           now,
		log:           orDefault(log),
	}
}

// Create stores an inactive plan for one of the coach's students.
func (s *planService) Create(ctx context.Context, coachID, studentID primitive.ObjectID, kind domain.PlanKind, title, content string) (*domain.Plan, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidPlanKind
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyText
	}
	if _, err := loadManagedStudent(ctx, s.users, coachID, studentID); err != nil {
		return nil, err
	}
	plan := &domain.Plan{
		CoachID:   coachID,
		StudentID: studentID,
		Kind:      kind,
		Title:     title,
		Content:   content,
	}
	id, err := s.plans.Create(ctx, plan)
	if err != nil {
		return nil, err
	}
	plan.ID = id
	return plan, nil
}

// List returns the student's plans, optionally of one kind.
func (s *planService) List(ctx context.Context, coachID, studentID primitive.ObjectID, kind domain.PlanKind) ([]domain.Plan, error) {
	if kind != "" && !kind.Valid() {
		return nil, domain.ErrInvalidPlanKind
	}
	if _, err := loadManagedStudent(ctx, s.users, coachID, studentID); err != nil {
		return nil, err
	}
	return s.plans.ListByStudent(ctx, studentID, kind)
}

// Activate deactivates the student's other plans of the kind and then
// activates this one. The two writes are not atomic; ActivePlan repairs a
// run that stopped in between.
func (s *planService) Activate(ctx context.Context, coachID, planID primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.CoachID != coachID {
		return nil, ErrPlanAccessDenied
	}

	if err := s.plans.DeactivateOthers(ctx, plan.StudentID, plan.Kind, plan.ID); err != nil {
		return nil, fmt.Errorf("deactivate %s plans: %w", plan.Kind, err)
	}
	now := s.now().UTC()
	if err := s.plans.Activate(ctx, plan.ID, now); err != nil {
		return nil, fmt.Errorf("activate plan: %w", err)
	}
	plan.IsActive = true
	plan.ActivatedAt = &now
	plan.UpdatedAt = now

	s.log.Info("plan_activated", "plan_id", plan.ID.Hex(), "student_id", plan.StudentID.Hex(), "kind", plan.Kind)
	recordNotification(ctx, s.notifications, s.log, coachID, plan.StudentID, plan.Kind.Category(), now)
	s.pusher.Notify(ctx, plan.StudentID, push.Message{
		Title: fmt.Sprintf("New %s plan", plan.Kind),
		Body:  fmt.Sprintf("Your coach activated %q.", plan.Title),
		Link:  "/student/plans/" + string(plan.Kind),
	})
	return plan, nil
}

// ActivePlan returns the plan of the kind the student should follow. When
// several are active the most recently activated wins and the others are
// switched off.
func (s *planService) ActivePlan(ctx context.Context, studentID primitive.ObjectID, kind domain.PlanKind) (*ActivePlanView, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidPlanKind
	}
	active, err := s.plans.ListActive(ctx, studentID, kind)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, ErrNoActivePlan
	}
	current := active[0]
	if len(active) > 1 {
		if err := s.plans.DeactivateOthers(ctx, studentID, kind, current.ID); err != nil {
			s.log.Warn("plan_reconcile_failed", "student_id", studentID.Hex(), "kind", kind, "error", err)
		} else {
			s.log.Info("plan_reconciled", "student_id", studentID.Hex(), "kind", kind, "deactivated", len(active)-1)
		}
	}
	return &ActivePlanView{Plan: current, HTML: renderMarkdown(current.Content)}, nil
}

func renderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return "<p>" + html.EscapeString(md) + "</p>"
	}
	return buf.String()
}
