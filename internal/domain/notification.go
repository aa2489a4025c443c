package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category identifies one of the five independent notification producers.
type Category string

const (
	CategoryPhoto    Category = "photo"
	CategoryMessage  Category = "message"
	CategoryDiet     Category = "diet"
	CategoryWorkout  Category = "workout"
	CategoryProtocol Category = "protocol"
)

// Categories lists every category in tab order.
var Categories = []Category{CategoryPhoto, CategoryMessage, CategoryDiet, CategoryWorkout, CategoryProtocol}

func (c Category) Valid() bool {
	switch c {
	case CategoryPhoto, CategoryMessage, CategoryDiet, CategoryWorkout, CategoryProtocol:
		return true
	}
	return false
}

// ParseCategory maps a detail-view tab name to its category. The "profile"
// tab, like any unknown tab, has none.
func ParseCategory(tab string) (Category, error) {
	switch tab {
	case "photos", "photo":
		return CategoryPhoto, nil
	case "messages", "message":
		return CategoryMessage, nil
	case "diet":
		return CategoryDiet, nil
	case "workout":
		return CategoryWorkout, nil
	case "protocol":
		return CategoryProtocol, nil
	}
	return "", ErrInvalidCategory
}

// NotificationEntry flags one unviewed event for a (coach, student, category).
type NotificationEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID   primitive.ObjectID `bson:"coachId" json:"coachId"`
	StudentID primitive.ObjectID `bson:"studentId" json:"studentId"`
	Category  Category           `bson:"category" json:"category"`
	IsViewed  bool               `bson:"isViewed" json:"isViewed"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	ViewedAt  *time.Time         `bson:"viewedAt,omitempty" json:"viewedAt,omitempty"`
}

// Counts tallies unviewed entries per category for one (coach, student).
type Counts struct {
	Photo    int `json:"photo"`
	Message  int `json:"message"`
	Diet     int `json:"diet"`
	Workout  int `json:"workout"`
	Protocol int `json:"protocol"`
	Total    int `json:"total"`
}

// Add counts n unviewed entries of category c.
func (c *Counts) Add(cat Category, n int) {
	switch cat {
	case CategoryPhoto:
		c.Photo += n
	case CategoryMessage:
		c.Message += n
	case CategoryDiet:
		c.Diet += n
	case CategoryWorkout:
		c.Workout += n
	case CategoryProtocol:
		c.Protocol += n
	default:
		return
	}
	c.Total += n
}

func (c Counts) Of(cat Category) int {
	switch cat {
	case CategoryPhoto:
		return c.Photo
	case CategoryMessage:
		return c.Message
	case CategoryDiet:
		return c.Diet
	case CategoryWorkout:
		return c.Workout
	case CategoryProtocol:
		return c.Protocol
	}
	return 0
}

func (c Counts) Has(cat Category) bool {
	return c.Of(cat) > 0
}

// HasAll is true when every category has at least one unviewed entry.
func (c Counts) HasAll() bool {
	for _, cat := range Categories {
		if !c.Has(cat) {
			return false
		}
	}
	return true
}

// Badge is the list-level visual state for a student row.
type Badge string

const (
	BadgeAll          Badge = "all"
	BadgePhotoMessage Badge = "photo+message"
	BadgePhoto        Badge = "photo"
	BadgeMessage      Badge = "message"
	BadgeNone         Badge = "none"
)

// Badge picks the composite state; "all" wins over the photo/message combos.
func (c Counts) Badge() Badge {
	switch {
	case c.HasAll():
		return BadgeAll
	case c.Has(CategoryPhoto) && c.Has(CategoryMessage):
		return BadgePhotoMessage
	case c.Has(CategoryPhoto):
		return BadgePhoto
	case c.Has(CategoryMessage):
		return BadgeMessage
	}
	return BadgeNone
}
