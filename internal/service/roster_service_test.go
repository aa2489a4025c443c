package service

import (
	"alcyxob/fitcoach/internal/domain"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoster_AddStudentByEmail(t *testing.T) {
	w := newWorld("2024-03-10")
	ctx := context.Background()
	svc := NewRosterService(w.users, w.notifications, quietLog())
	free := w.users.add(domain.User{Name: "Eva", Email: "eva@example.com", Role: domain.RoleStudent})

	added, err := svc.AddStudentByEmail(ctx, w.coach.ID, " EVA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, free.ID, added.ID)
	require.NotNil(t, added.CoachID)
	assert.Equal(t, w.coach.ID, *added.CoachID)

	// Adding again is fine, another coach is refused.
	_, err = svc.AddStudentByEmail(ctx, w.coach.ID, "eva@example.com")
	assert.NoError(t, err)
	rival := w.users.add(domain.User{Name: "Rival", Email: "rival@example.com", Role: domain.RoleCoach})
	_, err = svc.AddStudentByEmail(ctx, rival.ID, "eva@example.com")
	assert.ErrorIs(t, err, ErrStudentAlreadyTaken)

	_, err = svc.AddStudentByEmail(ctx, w.coach.ID, "nobody@example.com")
	assert.ErrorIs(t, err, ErrStudentNotFound)
	_, err = svc.AddStudentByEmail(ctx, w.coach.ID, "rival@example.com")
	assert.ErrorIs(t, err, ErrStudentNotRole)
}

func TestRoster_ListStudentsWithBadges(t *testing.T) {
	w := newWorld("2024-03-10")
	ctx := context.Background()
	bea := w.addStudent("Bea", "bea@example.com")
	require.NoError(t, w.notifications.Record(ctx, w.coach.ID, w.student.ID, domain.CategoryPhoto, w.clock.Now()))
	require.NoError(t, w.notifications.Record(ctx, w.coach.ID, w.student.ID, domain.CategoryMessage, w.clock.Now()))

	entries, err := NewRosterService(w.users, w.notifications, quietLog()).ListStudents(ctx, w.coach.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	badges := map[string]domain.Badge{}
	for _, e := range entries {
		assert.Empty(t, e.PasswordHash)
		badges[e.Name] = e.Notifications.Badge
	}
	assert.Equal(t, domain.BadgePhotoMessage, badges["Ana"])
	assert.Equal(t, domain.BadgeNone, badges[bea.Name])
}
