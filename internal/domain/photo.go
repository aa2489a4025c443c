package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Photo stores metadata about an ad-hoc progress photo sent by a student.
// The image itself lives in object storage.
type Photo struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StudentID   primitive.ObjectID `bson:"studentId" json:"studentId"`
	CoachID     primitive.ObjectID `bson:"coachId" json:"coachId"` // Denormalized
	ObjectKey   string             `bson:"objectKey" json:"-"`
	URL         string             `bson:"url" json:"url"`
	ContentType string             `bson:"contentType" json:"contentType"`
	Size        int64              `bson:"size" json:"size"`
	Caption     string             `bson:"caption,omitempty" json:"caption,omitempty"`
	UploadedAt  time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}
