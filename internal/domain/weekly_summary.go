package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Level grades water intake, sleep quality and workout performance.
type Level string

const (
	LevelExcellent Level = "excellent"
	LevelGood      Level = "good"
	LevelRegular   Level = "regular"
	LevelPoor      Level = "poor"
)

func (l Level) Valid() bool {
	switch l {
	case LevelExcellent, LevelGood, LevelRegular, LevelPoor:
		return true
	}
	return false
}

// PhotoPosition tags the three weekly progress photo angles.
type PhotoPosition string

const (
	PhotoFront PhotoPosition = "front"
	PhotoSide  PhotoPosition = "side"
	PhotoBack  PhotoPosition = "back"
)

// PhotoPositions lists the accepted angles in display order.
var PhotoPositions = []PhotoPosition{PhotoFront, PhotoSide, PhotoBack}

func (p PhotoPosition) Valid() bool {
	return p == PhotoFront || p == PhotoSide || p == PhotoBack
}

// SummaryState is derived from the queue and feedback fields, never stored.
type SummaryState string

const (
	StatePending      SummaryState = "pending"
	StateFeedbackSent SummaryState = "feedback-sent"
	StateCompleted    SummaryState = "completed"
)

// WeeklySummary is one student's weekly adherence report and the coach's
// review of it. Students write it once; coaches only touch the feedback and
// queue fields afterwards.
type WeeklySummary struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StudentID   primitive.ObjectID `bson:"studentId" json:"studentId"`
	CoachID     primitive.ObjectID `bson:"coachId" json:"coachId"` // Denormalized for queue queries
	WeekOfMonth int                `bson:"weekOfMonth" json:"weekOfMonth"`
	Month       int                `bson:"month" json:"month"`
	Year        int                `bson:"year" json:"year"`

	// --- Measurements ---
	Weight            float64  `bson:"weight" json:"weight"`
	BodyFatPercentage *float64 `bson:"bodyFatPercentage,omitempty" json:"bodyFatPercentage"`
	MuscleMass        *float64 `bson:"muscleMass,omitempty" json:"muscleMass"`
	WaistMeasurement  *float64 `bson:"waistMeasurement,omitempty" json:"waistMeasurement"`
	ChestMeasurement  *float64 `bson:"chestMeasurement,omitempty" json:"chestMeasurement"`
	ArmMeasurement    *float64 `bson:"armMeasurement,omitempty" json:"armMeasurement"`
	LegMeasurement    *float64 `bson:"legMeasurement,omitempty" json:"legMeasurement"`

	// --- Diet adherence: use Diet()/SetDiet() rather than the raw fields ---
	FollowedDiet      bool    `bson:"followedDiet" json:"followedDiet"`
	MealIssue         *string `bson:"mealIssue,omitempty" json:"mealIssue"`               // followed branch
	DaysNotFollowed   *string `bson:"daysNotFollowed,omitempty" json:"daysNotFollowed"`   // skipped branch
	MealsOutsideHome  *int    `bson:"mealsOutsideHome,omitempty" json:"mealsOutsideHome"` // skipped branch
	WaterIntakeLevel  *Level  `bson:"waterIntakeLevel,omitempty" json:"waterIntakeLevel"`
	SleepQualityLevel *Level  `bson:"sleepQualityLevel,omitempty" json:"sleepQualityLevel"`

	// --- Workout adherence ---
	MissedWorkout       bool    `bson:"missedWorkout" json:"missedWorkout"`
	DaysMissed          *int    `bson:"daysMissed,omitempty" json:"daysMissed"`
	WorkoutPerformance  *Level  `bson:"workoutPerformance,omitempty" json:"workoutPerformance"`
	NextWeekWorkoutTime *string `bson:"nextWeekWorkoutTime,omitempty" json:"nextWeekWorkoutTime"`

	// --- Photos ---
	FrontPhotoURL *string `bson:"frontPhotoUrl,omitempty" json:"frontPhotoUrl"`
	SidePhotoURL  *string `bson:"sidePhotoUrl,omitempty" json:"sidePhotoUrl"`
	BackPhotoURL  *string `bson:"backPhotoUrl,omitempty" json:"backPhotoUrl"`

	// --- Coach feedback ---
	CoachFeedback                *string    `bson:"coachFeedback,omitempty" json:"coachFeedback"`
	CoachFeedbackSentAt          *time.Time `bson:"coachFeedbackSentAt,omitempty" json:"coachFeedbackSentAt"`
	CoachPrivateNotes            *string    `bson:"coachPrivateNotes,omitempty" json:"coachPrivateNotes,omitempty"`
	CoachPublicObservation       *string    `bson:"coachPublicObservation,omitempty" json:"coachPublicObservation"`
	CoachPublicObservationSentAt *time.Time `bson:"coachPublicObservationSentAt,omitempty" json:"coachPublicObservationSentAt"`

	// --- Queue ---
	SubmissionOrder int64      `bson:"submissionOrder" json:"submissionOrder"`
	TaskCompleted   bool       `bson:"taskCompleted" json:"taskCompleted"`
	TaskCompletedAt *time.Time `bson:"taskCompletedAt,omitempty" json:"taskCompletedAt"`
	ViewedByCoach   bool       `bson:"viewedByCoach" json:"viewedByCoach"`
	ViewedAt        *time.Time `bson:"viewedAt,omitempty" json:"viewedAt"`

	// Earliest calendar date the student may submit again.
	NextAllowedDate time.Time `bson:"nextAllowedDate" json:"nextAllowedDate"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
}

// DietAnswers is the tagged variant behind FollowedDiet: either
// FollowedDietAnswers or SkippedDietAnswers.
type DietAnswers interface {
	followedDiet() bool
}

// FollowedDietAnswers are asked when the student followed the diet.
type FollowedDietAnswers struct {
	MealIssue    *string
	WaterIntake  *Level
	SleepQuality *Level
}

// SkippedDietAnswers are asked when the student did not follow the diet.
type SkippedDietAnswers struct {
	DaysNotFollowed  *string
	MealsOutsideHome *int
	WaterIntake      *Level
	SleepQuality     *Level
}

func (FollowedDietAnswers) followedDiet() bool { return true }
func (SkippedDietAnswers) followedDiet() bool  { return false }

// Diet narrows the stored diet fields into the variant selected by FollowedDiet.
func (s *WeeklySummary) Diet() DietAnswers {
	if s.FollowedDiet {
		return FollowedDietAnswers{MealIssue: s.MealIssue, WaterIntake: s.WaterIntakeLevel, SleepQuality: s.SleepQualityLevel}
	}
	return SkippedDietAnswers{
		DaysNotFollowed:  s.DaysNotFollowed,
		MealsOutsideHome: s.MealsOutsideHome,
		WaterIntake:      s.WaterIntakeLevel,
		SleepQuality:     s.SleepQualityLevel,
	}
}

// SetDiet stores a variant and clears every field of the other branch.
func (s *WeeklySummary) SetDiet(a DietAnswers) {
	s.MealIssue, s.DaysNotFollowed, s.MealsOutsideHome = nil, nil, nil
	switch v := a.(type) {
	case FollowedDietAnswers:
		s.FollowedDiet = true
		s.MealIssue = v.MealIssue
		s.WaterIntakeLevel, s.SleepQualityLevel = v.WaterIntake, v.SleepQuality
	case SkippedDietAnswers:
		s.FollowedDiet = false
		s.DaysNotFollowed = v.DaysNotFollowed
		s.MealsOutsideHome = v.MealsOutsideHome
		s.WaterIntakeLevel, s.SleepQualityLevel = v.WaterIntake, v.SleepQuality
	}
}

// SetWorkout stores the workout answers; daysMissed is dropped unless a
// workout was missed.
func (s *WeeklySummary) SetWorkout(missed bool, daysMissed *int) {
	s.MissedWorkout = missed
	if missed {
		s.DaysMissed = daysMissed
	} else {
		s.DaysMissed = nil
	}
}

// CheckIntegrity rejects rows whose fields contradict each other.
func (s *WeeklySummary) CheckIntegrity() error {
	if s.FollowedDiet && (s.DaysNotFollowed != nil || s.MealsOutsideHome != nil) {
		return ErrMalformedSummary
	}
	if !s.FollowedDiet && s.MealIssue != nil {
		return ErrMalformedSummary
	}
	if !s.MissedWorkout && s.DaysMissed != nil {
		return ErrMalformedSummary
	}
	if s.TaskCompleted && (s.TaskCompletedAt == nil || !s.ViewedByCoach) {
		return ErrMalformedSummary
	}
	return nil
}

// State derives the review state of the summary.
func (s *WeeklySummary) State() SummaryState {
	switch {
	case s.TaskCompleted:
		return StateCompleted
	case s.CoachFeedback != nil:
		return StateFeedbackSent
	default:
		return StatePending
	}
}

// PhotoURL returns the stored URL for a position, or "" when absent.
func (s *WeeklySummary) PhotoURL(p PhotoPosition) string {
	var u *string
	switch p {
	case PhotoFront:
		u = s.FrontPhotoURL
	case PhotoSide:
		u = s.SidePhotoURL
	case PhotoBack:
		u = s.BackPhotoURL
	}
	if u == nil {
		return ""
	}
	return *u
}

func (s *WeeklySummary) SetPhotoURL(p PhotoPosition, url string) {
	switch p {
	case PhotoFront:
		s.FrontPhotoURL = &url
	case PhotoSide:
		s.SidePhotoURL = &url
	case PhotoBack:
		s.BackPhotoURL = &url
	}
}

// PublicObservationVisible reports whether the time-boxed observation is
// still shown to the student at now.
func (s *WeeklySummary) PublicObservationVisible(now time.Time, ttl time.Duration) bool {
	if s.CoachPublicObservation == nil || s.CoachPublicObservationSentAt == nil {
		return false
	}
	return now.Before(s.CoachPublicObservationSentAt.Add(ttl))
}

// ForStudent returns a copy safe to show the student: private notes are
// removed and an expired public observation is hidden.
func (s WeeklySummary) ForStudent(now time.Time, ttl time.Duration) WeeklySummary {
	s.CoachPrivateNotes = nil
	if !s.PublicObservationVisible(now, ttl) {
		s.CoachPublicObservation = nil
		s.CoachPublicObservationSentAt = nil
	}
	return s
}
