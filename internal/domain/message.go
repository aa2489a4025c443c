package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a direct message between a coach and one of their students.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID   primitive.ObjectID `bson:"coachId" json:"coachId"`
	StudentID primitive.ObjectID `bson:"studentId" json:"studentId"`
	SenderID  primitive.ObjectID `bson:"senderId" json:"senderId"`
	Body      string             `bson:"body" json:"body"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// FromStudent reports whether the student wrote the message.
func (m *Message) FromStudent() bool {
	return m.SenderID == m.StudentID
}
