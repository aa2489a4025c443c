package domain

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// SummaryForm is the raw student input for a weekly summary, as posted by
// the multipart form. Numbers arrive as text and are parsed by Parse.
type SummaryForm struct {
	Weight            string `form:"weight" validate:"required"`
	BodyFatPercentage string `form:"bodyFatPercentage"`
	MuscleMass        string `form:"muscleMass"`
	WaistMeasurement  string `form:"waistMeasurement"`
	ChestMeasurement  string `form:"chestMeasurement"`
	ArmMeasurement    string `form:"armMeasurement"`
	LegMeasurement    string `form:"legMeasurement"`

	FollowedDiet      *bool  `form:"followedDiet" validate:"required"`
	MealIssue         string `form:"mealIssue" validate:"max=2000"`
	DaysNotFollowed   string `form:"daysNotFollowed" validate:"max=500"`
	MealsOutsideHome  string `form:"mealsOutsideHome"`
	WaterIntakeLevel  string `form:"waterIntakeLevel"`
	SleepQualityLevel string `form:"sleepQualityLevel"`

	MissedWorkout       *bool  `form:"missedWorkout" validate:"required"`
	DaysMissed          string `form:"daysMissed"`
	WorkoutPerformance  string `form:"workoutPerformance"`
	NextWeekWorkoutTime string `form:"nextWeekWorkoutTime" validate:"omitempty,datetime=15:04"`
}

// Parse converts the form into an unsaved WeeklySummary. Fields of the
// branch not taken are dropped whatever the client sent.
func (f SummaryForm) Parse() (*WeeklySummary, error) {
	verr := NewValidationError()
	if f.FollowedDiet == nil {
		verr.Add("followedDiet", "must be answered")
	}
	if f.MissedWorkout == nil {
		verr.Add("missedWorkout", "must be answered")
	}

	s := &WeeklySummary{}
	if strings.TrimSpace(f.Weight) == "" {
		verr.Add("weight", "is required")
	} else if w, err := parseFloat(f.Weight); err != nil || w <= 0 {
		verr.Add("weight", "must be a positive number")
	} else {
		s.Weight = w
	}

	optional := []struct {
		name string
		raw  string
		dst  **float64
	}{
		{"bodyFatPercentage", f.BodyFatPercentage, &s.BodyFatPercentage},
		{"muscleMass", f.MuscleMass, &s.MuscleMass},
		{"waistMeasurement", f.WaistMeasurement, &s.WaistMeasurement},
		{"chestMeasurement", f.ChestMeasurement, &s.ChestMeasurement},
		{"armMeasurement", f.ArmMeasurement, &s.ArmMeasurement},
		{"legMeasurement", f.LegMeasurement, &s.LegMeasurement},
	}
	for _, o := range optional {
		if strings.TrimSpace(o.raw) == "" {
			continue
		}
		v, err := parseFloat(o.raw)
		if err != nil || v < 0 {
			verr.Add(o.name, "must be a non-negative number")
			continue
		}
		*o.dst = &v
	}

	water := optionalLevel(verr, "waterIntakeLevel", f.WaterIntakeLevel)
	sleep := optionalLevel(verr, "sleepQualityLevel", f.SleepQualityLevel)
	performance := optionalLevel(verr, "workoutPerformance", f.WorkoutPerformance)

	if f.FollowedDiet != nil {
		if *f.FollowedDiet {
			s.SetDiet(FollowedDietAnswers{MealIssue: optionalText(f.MealIssue), WaterIntake: water, SleepQuality: sleep})
		} else {
			var meals *int
			if strings.TrimSpace(f.MealsOutsideHome) != "" {
				n, err := strconv.Atoi(strings.TrimSpace(f.MealsOutsideHome))
				if err != nil || n < 0 {
					verr.Add("mealsOutsideHome", "must be a non-negative whole number")
				} else {
					meals = &n
				}
			}
			s.SetDiet(SkippedDietAnswers{
				DaysNotFollowed:  optionalText(f.DaysNotFollowed),
				MealsOutsideHome: meals,
				WaterIntake:      water,
				SleepQuality:     sleep,
			})
		}
	}

	if f.MissedWorkout != nil {
		var days *int
		if *f.MissedWorkout && strings.TrimSpace(f.DaysMissed) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(f.DaysMissed))
			if err != nil || n < 1 || n > 7 {
				verr.Add("daysMissed", "must be between 1 and 7")
			} else {
				days = &n
			}
		}
		s.SetWorkout(*f.MissedWorkout, days)
	}
	s.WorkoutPerformance = performance
	s.NextWeekWorkoutTime = optionalText(f.NextWeekWorkoutTime)

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return s, nil
}

// errNotFinite rejects NaN and infinities, which ParseFloat accepts but
// JSON cannot encode.
var errNotFinite = errors.New("not a finite number")

// parseFloat accepts both "82.5" and "82,5".
func parseFloat(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

func optionalText(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}

func optionalLevel(verr *ValidationError, field, raw string) *Level {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	l := Level(strings.ToLower(raw))
	if !l.Valid() {
		verr.Add(field, "must be one of excellent, good, regular, poor")
		return nil
	}
	return &l
}
