package service

import (
	"alcyxob/fitcoach/internal/domain"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessages_Conversation(t *testing.T) {
	w := newWorld("2024-03-10")
	ctx := context.Background()
	svc := NewMessageService(w.users, w.messages, w.notifications, w.pusher, w.clock.Now, quietLog())

	_, err := svc.SendFromStudent(ctx, w.student.ID, "how many eggs?")
	require.NoError(t, err)
	_, err = svc.SendFromCoach(ctx, w.coach.ID, w.student.ID, "three")
	require.NoError(t, err)

	conv, err := svc.ConversationForStudent(ctx, w.student.ID, 0)
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.True(t, conv[0].FromStudent())
	assert.False(t, conv[1].FromStudent())

	counts, _ := w.notifications.CountUnviewed(ctx, w.coach.ID, w.student.ID)
	assert.Equal(t, 1, counts.Message)
	assert.Len(t, w.pusher.to(w.student.ID), 1)
	assert.Empty(t, w.pusher.to(w.coach.ID))
}

func TestMessages_Validation(t *testing.T) {
	w := newWorld("2024-03-10")
	svc := NewMessageService(w.users, w.messages, w.notifications, w.pusher, w.clock.Now, quietLog())

	_, err := svc.SendFromStudent(context.Background(), w.student.ID, "  ")
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = svc.SendFromCoach(context.Background(), w.coach.ID, w.student.ID, strings.Repeat("a", maxMessageLength+1))
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Empty(t, w.messages.msgs)
}
