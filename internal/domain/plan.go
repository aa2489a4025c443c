package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanKind is the kind of plan a coach hands to a student. Each kind has its
// own notification category.
type PlanKind string

const (
	PlanDiet     PlanKind = "diet"
	PlanWorkout  PlanKind = "workout"
	PlanProtocol PlanKind = "protocol"
)

func (k PlanKind) Valid() bool {
	return k == PlanDiet || k == PlanWorkout || k == PlanProtocol
}

// Category returns the notification category raised when a plan of this
// kind is activated.
func (k PlanKind) Category() Category {
	return Category(k)
}

// Plan is a diet, workout or hormonal protocol prepared for one student.
// At most one plan per kind is active for a student at a time.
type Plan struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID     primitive.ObjectID `bson:"coachId" json:"coachId"`
	StudentID   primitive.ObjectID `bson:"studentId" json:"studentId"`
	Kind        PlanKind           `bson:"kind" json:"kind"`
	Title       string             `bson:"title" json:"title"`
	Content     string             `bson:"content" json:"content"` // Markdown
	IsActive    bool               `bson:"isActive" json:"isActive"`
	ActivatedAt *time.Time         `bson:"activatedAt,omitempty" json:"activatedAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
