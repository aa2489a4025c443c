package service

import (
	"alcyxob/fitcoach/internal/domain"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (w *world) planService() PlanService {
	return NewPlanService(w.users, w.plans, w.notifications, w.pusher, w.clock.Now, quietLog())
}

func TestPlans_ActivateKeepsOneActivePerKind(t *testing.T) {
	w := newWorld("2024-03-10")
	ctx := context.Background()
	svc := w.planService()

	first, err := svc.Create(ctx, w.coach.ID, w.student.ID, domain.PlanDiet, "Cut", "less carbs")
	require.NoError(t, err)
	second, err := svc.Create(ctx, w.coach.ID, w.student.ID, domain.PlanDiet, "Bulk", "more rice")
	require.NoError(t, err)
	workout, err := svc.Create(ctx, w.coach.ID, w.student.ID, domain.PlanWorkout, "Legs", "squats")
	require.NoError(t, err)

	_, err = svc.Activate(ctx, w.coach.ID, first.ID)
	require.NoError(t, err)
	_, err = svc.Activate(ctx, w.coach.ID, workout.ID)
	require.NoError(t, err)
	w.clock.Advance(time.Minute)
	_, err = svc.Activate(ctx, w.coach.ID, second.ID)
	require.NoError(t, err)

	active := w.plans.active(w.student.ID, domain.PlanDiet)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
	assert.Len(t, w.plans.active(w.student.ID, domain.PlanWorkout), 1)

	counts, _ := w.notifications.CountUnviewed(ctx, w.coach.ID, w.student.ID)
	assert.Equal(t, 1, counts.Diet)
	assert.Equal(t, 1, counts.Workout)
	assert.Len(t, w.pusher.to(w.student.ID), 3)
}

func TestPlans_ActivePlanReconcilesInterruptedActivation(t *testing.T) {
	w := newWorld("2024-03-10")
	ctx := context.Background()
	older := w.clock.Now().Add(-time.Hour)
	newer := w.clock.Now()
	w.plans.plans = []domain.Plan{
		{ID: primitive.NewObjectID(), CoachID: w.coach.ID, StudentID: w.student.ID, Kind: domain.PlanProtocol, Title: "A", IsActive: true, ActivatedAt: &older},
		{ID: primitive.NewObjectID(), CoachID: w.coach.ID, StudentID: w.student.ID, Kind: domain.PlanProtocol, Title: "B", Content: "**dose** <script>x</script>", IsActive: true, ActivatedAt: &newer},
	}

	view, err := w.planService().ActivePlan(ctx, w.student.ID, domain.PlanProtocol)
	require.NoError(t, err)
	assert.Equal(t, "B", view.Title)
	assert.Contains(t, view.HTML, "<strong>dose</strong>")
	assert.NotContains(t, view.HTML, "<script>")

	assert.Len(t, w.plans.active(w.student.ID, domain.PlanProtocol), 1)
}

func TestPlans_Errors(t *testing.T) {
	w := newWorld("2024-03-10")
	ctx := context.Background()
	svc := w.planService()

	_, err := svc.ActivePlan(ctx, w.student.ID, domain.PlanDiet)
	assert.ErrorIs(t, err, ErrNoActivePlan)

	_, err = svc.Create(ctx, w.coach.ID, w.student.ID, "supplements", "x", "")
	assert.ErrorIs(t, err, domain.ErrInvalidPlanKind)

	p, err := svc.Create(ctx, w.coach.ID, w.student.ID, domain.PlanDiet, "Cut", "")
	require.NoError(t, err)
	_, err = svc.Activate(ctx, primitive.NewObjectID(), p.ID)
	assert.ErrorIs(t, err, ErrPlanAccessDenied)
	_, err = svc.Activate(ctx, w.coach.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrPlanNotFound)

	stranger := w.users.add(domain.User{Name: "Dan", Email: "dan@example.com", Role: domain.RoleStudent})
	_, err = svc.Create(ctx, w.coach.ID, stranger.ID, domain.PlanDiet, "Cut", "")
	assert.ErrorIs(t, err, ErrStudentNotManaged)
}
