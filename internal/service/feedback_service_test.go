package service

import (
	"alcyxob/fitcoach/internal/domain"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedback_MovesToFeedbackSentWithoutReordering(t *testing.T) {
	w := newWorld("2024-03-10")
	rows := seedQueue(w, 1, 2, 3)
	ctx := context.Background()

	s, err := w.feedbackService().SendFeedback(ctx, w.coach.ID, rows[2].ID, "  nice progress  ")
	require.NoError(t, err)
	assert.Equal(t, domain.StateFeedbackSent, s.State())
	assert.Equal(t, "nice progress", *s.CoachFeedback)
	require.NotNil(t, s.CoachFeedbackSentAt)
	assert.False(t, s.TaskCompleted)

	entries, err := w.reviewService().ListForCoach(ctx, w.coach.ID, QueueAll)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, orderOf(entries))
	assert.Equal(t, 3, entries[2].Position)

	require.Len(t, w.pusher.to(w.student.ID), 1)
}

func TestFeedback_EmptyTextRejected(t *testing.T) {
	w := newWorld("2024-03-10")
	rows := seedQueue(w, 1)
	svc := w.feedbackService()

	_, err := svc.SendFeedback(context.Background(), w.coach.ID, rows[0].ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
	_, err = svc.SendPublicObservation(context.Background(), w.coach.ID, rows[0].ID, "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestFeedback_PrivateNotesDoNotPushOrChangeState(t *testing.T) {
	w := newWorld("2024-03-10")
	rows := seedQueue(w, 1)

	s, err := w.feedbackService().SetPrivateNotes(context.Background(), w.coach.ID, rows[0].ID, "check sleep")
	require.NoError(t, err)
	assert.Equal(t, "check sleep", *s.CoachPrivateNotes)
	assert.Equal(t, domain.StatePending, s.State())
	assert.Empty(t, w.pusher.to(w.student.ID))
}

func TestFeedback_BlankPrivateNotesClearTheField(t *testing.T) {
	w := newWorld("2024-03-10")
	rows := seedQueue(w, 1)
	svc := w.feedbackService()

	_, err := svc.SetPrivateNotes(context.Background(), w.coach.ID, rows[0].ID, "check sleep")
	require.NoError(t, err)

	s, err := svc.SetPrivateNotes(context.Background(), w.coach.ID, rows[0].ID, "   ")
	require.NoError(t, err)
	assert.Nil(t, s.CoachPrivateNotes)
}

func TestFeedback_UnknownSummary(t *testing.T) {
	w := newWorld("2024-03-10")
	seedQueue(w, 1)
	_, err := w.feedbackService().SendFeedback(context.Background(), w.coach.ID, w.student.ID, "x")
	assert.ErrorIs(t, err, ErrSummaryNotFound)
}
