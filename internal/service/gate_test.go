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

func TestGate_NoPriorSummaryIsAllowed(t *testing.T) {
	g := NewGate(&fakeSummaries{})

	res, err := g.CanSubmit(context.Background(), primitive.NewObjectID(), date("2024-03-10"))
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Nil(t, res.NextAllowedDate)
}

func TestGate_BlocksUntilNextAllowedDate(t *testing.T) {
	student := primitive.NewObjectID()
	repo := &fakeSummaries{}
	repo.insert(domain.WeeklySummary{
		StudentID:       student,
		CoachID:         primitive.NewObjectID(),
		NextAllowedDate: date("2024-03-17"),
		CreatedAt:       date("2024-03-10"),
	})
	g := NewGate(repo)

	res, err := g.CanSubmit(context.Background(), student, date("2024-03-15"))
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	require.NotNil(t, res.NextAllowedDate)
	assert.Equal(t, "17/03/2024", domain.FormatDate(*res.NextAllowedDate))

	res, err = g.CanSubmit(context.Background(), student, date("2024-03-17"))
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestGate_IgnoresTimeOfDay(t *testing.T) {
	student := primitive.NewObjectID()
	repo := &fakeSummaries{}
	repo.insert(domain.WeeklySummary{StudentID: student, NextAllowedDate: date("2024-03-17"), CreatedAt: date("2024-03-10")})
	g := NewGate(repo)

	cases := []struct {
		today   string
		allowed bool
	}{
		{"2024-03-16T23:59:59Z", false},
		{"2024-03-17T00:00:01Z", true},
		{"2024-03-17T23:00:00Z", true},
		{"2024-03-18T08:00:00Z", true},
	}
	for _, tc := range cases {
		t.Run(tc.today, func(t *testing.T) {
			today, err := time.Parse(time.RFC3339, tc.today)
			require.NoError(t, err)
			res, err := g.CanSubmit(context.Background(), student, today)
			require.NoError(t, err)
			assert.Equal(t, tc.allowed, res.Allowed)
		})
	}
}

func TestGate_UsesMostRecentSummary(t *testing.T) {
	student := primitive.NewObjectID()
	repo := &fakeSummaries{}
	repo.insert(domain.WeeklySummary{StudentID: student, NextAllowedDate: date("2024-03-30"), CreatedAt: date("2024-03-01")})
	repo.insert(domain.WeeklySummary{StudentID: student, NextAllowedDate: date("2024-03-12"), CreatedAt: date("2024-03-05")})

	res, err := NewGate(repo).CanSubmit(context.Background(), student, date("2024-03-15"))
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
