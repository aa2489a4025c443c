package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestWeeklySummary_CheckIntegrity(t *testing.T) {
	now := time.Now()
	three := 3

	assert.NoError(t, (&WeeklySummary{FollowedDiet: true, MealIssue: strPtr("x")}).CheckIntegrity())
	assert.ErrorIs(t, (&WeeklySummary{FollowedDiet: true, MealsOutsideHome: &three}).CheckIntegrity(), ErrMalformedSummary)
	assert.ErrorIs(t, (&WeeklySummary{FollowedDiet: false, MealIssue: strPtr("x")}).CheckIntegrity(), ErrMalformedSummary)
	assert.ErrorIs(t, (&WeeklySummary{MissedWorkout: false, DaysMissed: &three}).CheckIntegrity(), ErrMalformedSummary)
	assert.ErrorIs(t, (&WeeklySummary{TaskCompleted: true, ViewedByCoach: true}).CheckIntegrity(), ErrMalformedSummary)
	assert.NoError(t, (&WeeklySummary{TaskCompleted: true, TaskCompletedAt: &now, ViewedByCoach: true}).CheckIntegrity())
}

func TestWeeklySummary_State(t *testing.T) {
	s := &WeeklySummary{}
	assert.Equal(t, StatePending, s.State())
	s.CoachFeedback = strPtr("good week")
	assert.Equal(t, StateFeedbackSent, s.State())
	s.TaskCompleted = true
	assert.Equal(t, StateCompleted, s.State())
}

func TestWeeklySummary_SetDietSwitchesBranch(t *testing.T) {
	meals := 2
	s := &WeeklySummary{}
	s.SetDiet(SkippedDietAnswers{MealsOutsideHome: &meals, DaysNotFollowed: strPtr("weekend")})
	s.SetDiet(FollowedDietAnswers{MealIssue: strPtr("none")})

	assert.True(t, s.FollowedDiet)
	assert.Nil(t, s.MealsOutsideHome)
	assert.Nil(t, s.DaysNotFollowed)
	assert.NoError(t, s.CheckIntegrity())
}

func TestWeeklySummary_Photos(t *testing.T) {
	s := &WeeklySummary{}
	s.SetPhotoURL(PhotoSide, "https://cdn/side.jpg")
	assert.Equal(t, "https://cdn/side.jpg", s.PhotoURL(PhotoSide))
	assert.Equal(t, "", s.PhotoURL(PhotoFront))
	assert.False(t, PhotoPosition("top").Valid())
}

func TestWeeklySummary_ForStudent(t *testing.T) {
	sent := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	ttl := 7 * 24 * time.Hour
	s := WeeklySummary{
		CoachPrivateNotes:            strPtr("watch knee"),
		CoachPublicObservation:       strPtr("great posture"),
		CoachPublicObservationSentAt: &sent,
	}

	visible := s.ForStudent(sent.Add(24*time.Hour), ttl)
	assert.Nil(t, visible.CoachPrivateNotes)
	assert.Equal(t, "great posture", *visible.CoachPublicObservation)

	expired := s.ForStudent(sent.Add(ttl), ttl)
	assert.Nil(t, expired.CoachPublicObservation)
	assert.Nil(t, expired.CoachPublicObservationSentAt)

	assert.NotNil(t, s.CoachPrivateNotes, "original is untouched")
}
