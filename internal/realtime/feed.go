// Package realtime streams invalidation events for a (coach, student) pair.
// Events carry no data; subscribers re-query the affected resource.
package realtime

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Topic names the resource a client should refetch.
type Topic string

const (
	TopicNotifications Topic = "notifications"
	TopicSummaries     Topic = "summaries"
	TopicMessages      Topic = "messages"
)

// Event tells a subscriber that a topic changed.
type Event struct {
	Topic Topic     `json:"topic"`
	At    time.Time `json:"at"`
}

// Feed opens subscriptions. The channel is closed when ctx ends or the
// underlying stream fails.
type Feed interface {
	Subscribe(ctx context.Context, coachID, studentID primitive.ObjectID) (<-chan Event, error)
}
