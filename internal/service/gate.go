package service

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GateResult says whether a student may submit a weekly summary today.
type GateResult struct {
	Allowed         bool       `json:"allowed"`
	NextAllowedDate *time.Time `json:"nextAllowedDate,omitempty"`
}

// Gate decides from the latest summary whether the cooldown has expired.
// It only reads.
type Gate struct {
	summaries repository.WeeklySummaryRepository
}

// NewGate returns a Gate reading from summaries.
func NewGate(summaries repository.WeeklySummaryRepository) *Gate {
	return &Gate{summaries: summaries}
}

// CanSubmit compares calendar dates only: the student is blocked while the
// latest nextAllowedDate is after today.
func (g *Gate) CanSubmit(ctx context.Context, studentID primitive.ObjectID, today time.Time) (GateResult, error) {
	latest, err := g.summaries.GetLatestByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return GateResult{Allowed: true}, nil
		}
		return GateResult{}, err
	}
	next := domain.DateOf(latest.NextAllowedDate)
	if next.After(domain.DateOf(today)) {
		return GateResult{Allowed: false, NextAllowedDate: &next}, nil
	}
	return GateResult{Allowed: true}, nil
}
