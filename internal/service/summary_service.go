package service

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/photo"
	"alcyxob/fitcoach/internal/push"
	"alcyxob/fitcoach/internal/repository"
	"alcyxob/fitcoach/internal/storage"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxWeeklyPhotos is one photo per position.
const maxWeeklyPhotos = 3

var formValidator = newFormValidator()

// newFormValidator reports fields under their form names.
func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// PhotoUpload is one weekly photo as received from the client.
type PhotoUpload struct {
	Position domain.PhotoPosition
	Body     io.Reader
}

// SummaryNotSavedError reports weekly photos that reached storage while the
// summary row itself was not written. The photos are left in place.
type SummaryNotSavedError struct {
	PhotoURLs map[domain.PhotoPosition]string
	Err       error
}

func (e *SummaryNotSavedError) Error() string {
	return "photos were saved but the weekly summary was not: " + e.Err.Error()
}

func (e *SummaryNotSavedError) Unwrap() error { return e.Err }

// SummaryService is the student's side of the weekly summary: the cooldown
// gate, submission and reading back their own summaries.
type SummaryService interface {
	Gate(ctx context.Context, studentID primitive.ObjectID) (GateResult, error)
	Create(ctx context.Context, studentID primitive.ObjectID, form domain.SummaryForm, photos []PhotoUpload) (*domain.WeeklySummary, error)
	ListForStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.WeeklySummary, error)
	GetForStudent(ctx context.Context, studentID, summaryID primitive.ObjectID) (*domain.WeeklySummary, error)
}

// SummaryDeps groups the collaborators of the summary service.
type SummaryDeps struct {
	Users         repository.UserRepository
	Summaries     repository.WeeklySummaryRepository
	Slots         repository.SubmissionSlotRepository
	Sequences     repository.SequenceRepository
	Notifications repository.NotificationRepository
	Storage       storage.FileStorage
	Pusher        Pusher
	Log           *slog.Logger
}

// SummaryOptions carries the tunables read from config.
type SummaryOptions struct {
	Cooldown       time.Duration
	ObservationTTL time.Duration
	Photo          photo.Options
	Location       *time.Location
	Now            Clock
}

type summaryService struct {
	SummaryDeps
	gate *Gate
	opts SummaryOptions
}

// NewSummaryService fills in defaults for a zero clock, location or cooldown
// and returns the service.
func NewSummaryService(deps SummaryDeps, opts SummaryOptions) SummaryService {
	if opts.Now == nil {
		opts.Now = systemClock
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 7 * 24 * time.Hour
	}
	deps.Pusher = orNoop(deps.Pusher)
	deps.Log = orDefault(deps.Log)
	return &summaryService{SummaryDeps: deps, gate: NewGate(deps.Summaries), opts: opts}
}

func (s *summaryService) today() time.Time {
	return domain.DateOf(s.opts.Now().In(s.opts.Location))
}

// Gate reports whether the student may submit today.
func (s *summaryService) Gate(ctx context.Context, studentID primitive.ObjectID) (GateResult, error) {
	return s.gate.CanSubmit(ctx, studentID, s.today())
}

// Create validates the form and photos, re-checks the gate, claims the
// cooldown slot and writes the summary. The photo notification and the push
// to the coach are best effort.
func (s *summaryService) Create(ctx context.Context, studentID primitive.ObjectID, form domain.SummaryForm, photos []PhotoUpload) (*domain.WeeklySummary, error) {
	// 1. Validate everything before any write
	summary, err := parseForm(form)
	if err != nil {
		return nil, err
	}
	images, err := s.preparePhotos(photos)
	if err != nil {
		return nil, err
	}

	// 2. Resolve the reviewing coach
	student, err := loadStudent(ctx, s.Users, studentID)
	if err != nil {
		return nil, err
	}
	coachID, err := coachOf(student)
	if err != nil {
		return nil, err
	}

	// 3. Gate at write time, then claim the slot so a concurrent submit loses
	today := s.today()
	res, err := s.gate.CanSubmit(ctx, studentID, today)
	if err != nil {
		return nil, err
	}
	if !res.Allowed {
		return nil, &domain.CooldownError{NextAllowedDate: *res.NextAllowedDate}
	}
	next := domain.AddDays(today, domain.CooldownDays(s.opts.Cooldown))
	if err := s.Slots.Claim(ctx, studentID, today, next); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, &domain.CooldownError{NextAllowedDate: next}
		}
		return nil, err
	}
	release := func(cause error) {
		if rerr := s.Slots.Release(context.WithoutCancel(ctx), studentID, next, today); rerr != nil {
			s.Log.Error("submission_slot_release_failed", "student_id", studentID.Hex(), "cause", cause, "error", rerr)
		}
	}

	// 4. Photos go to storage first; their URLs are part of the row
	now := s.opts.Now().UTC()
	summary.StudentID = studentID
	summary.CoachID = coachID
	summary.WeekOfMonth = domain.WeekOfMonth(today)
	summary.Month = int(today.Month())
	summary.Year = today.Year()

	uploaded := map[domain.PhotoPosition]string{}
	for _, pos := range domain.PhotoPositions {
		img, ok := images[pos]
		if !ok {
			continue
		}
		key := weeklyPhotoKey(studentID, summary.Year, summary.Month, summary.WeekOfMonth, pos, now)
		url, err := s.Storage.UploadObject(ctx, key, img.Reader(), img.Size(), img.ContentType)
		if err != nil {
			release(err)
			return nil, fmt.Errorf("upload %s photo: %w", pos, err)
		}
		uploaded[pos] = url
		summary.SetPhotoURL(pos, url)
	}

	// 5. Queue position and insert
	order, err := s.Sequences.Next(ctx, submissionOrderKey(coachID))
	if err == nil {
		summary.SubmissionOrder = order
		summary.TaskCompleted = false
		summary.ViewedByCoach = false
		summary.NextAllowedDate = next
		summary.CreatedAt = now
		summary.ID, err = s.Summaries.Create(ctx, summary)
	}
	if err != nil {
		release(err)
		if len(uploaded) > 0 {
			s.Log.Error("photo_saved_summary_failed", "student_id", studentID.Hex(), "photos", len(uploaded), "error", err)
			return nil, &SummaryNotSavedError{PhotoURLs: uploaded, Err: err}
		}
		return nil, err
	}

	s.Log.Info("summary_created",
		"summary_id", summary.ID.Hex(),
		"student_id", studentID.Hex(),
		"coach_id", coachID.Hex(),
		"submission_order", summary.SubmissionOrder,
	)

	// 6. Best-effort fan-out
	recordNotification(ctx, s.Notifications, s.Log, coachID, studentID, domain.CategoryPhoto, now)
	s.Pusher.Notify(ctx, coachID, push.Message{
		Title: "New weekly summary",
		Body:  fmt.Sprintf("%s sent the weekly summary for week %d of %02d/%d.", student.Name, summary.WeekOfMonth, summary.Month, summary.Year),
		Link:  "/coach/students/" + studentID.Hex(),
	})
	return summary, nil
}

// ListForStudent returns the student's summaries with coach-only fields
// stripped and expired public observations hidden.
func (s *summaryService) ListForStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.WeeklySummary, error) {
	summaries, err := s.Summaries.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	now := s.opts.Now()
	for i := range summaries {
		summaries[i] = summaries[i].ForStudent(now, s.opts.ObservationTTL)
	}
	return summaries, nil
}

// GetForStudent returns one of the student's own summaries. Another student's
// summary is reported as not found.
func (s *summaryService) GetForStudent(ctx context.Context, studentID, summaryID primitive.ObjectID) (*domain.WeeklySummary, error) {
	summary, err := s.Summaries.GetByID(ctx, summaryID)
	if err != nil {
		return nil, mapSummaryErr(err)
	}
	if summary.StudentID != studentID {
		return nil, ErrSummaryNotFound
	}
	view := summary.ForStudent(s.opts.Now(), s.opts.ObservationTTL)
	return &view, nil
}

// preparePhotos checks count, positions and content, and normalises each
// image to JPEG. Nothing is written.
func (s *summaryService) preparePhotos(photos []PhotoUpload) (map[domain.PhotoPosition]*photo.Image, error) {
	verr := domain.NewValidationError()
	if len(photos) > maxWeeklyPhotos {
		verr.Add("photos", fmt.Sprintf("at most %d photos are allowed", maxWeeklyPhotos))
		return nil, verr
	}
	images := make(map[domain.PhotoPosition]*photo.Image, len(photos))
	for _, p := range photos {
		field := string(p.Position) + "Photo"
		if !p.Position.Valid() {
			verr.Add("photos", fmt.Sprintf("unknown position %q", p.Position))
			continue
		}
		if _, dup := images[p.Position]; dup {
			verr.Add(field, "sent more than once")
			continue
		}
		img, err := photo.Process(p.Body, s.opts.Photo)
		if err != nil {
			verr.Add(field, photoErrorMessage(err))
			continue
		}
		images[p.Position] = img
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return images, nil
}

func photoErrorMessage(err error) string {
	switch {
	case errors.Is(err, photo.ErrTooLarge):
		return "file is too large"
	case errors.Is(err, photo.ErrEmpty):
		return "file is empty"
	case errors.Is(err, photo.ErrUnsupported):
		return "file must be a JPEG, PNG or WebP image"
	}
	return "file could not be read"
}

// parseForm runs the struct rules and then the domain parser, merging both
// sets of field errors.
func parseForm(form domain.SummaryForm) (*domain.WeeklySummary, error) {
	verr := domain.NewValidationError()
	if err := formValidator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, err
		}
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), ruleMessage(fe))
		}
	}
	summary, err := form.Parse()
	if err != nil {
		var perr *domain.ValidationError
		if !errors.As(err, &perr) {
			return nil, err
		}
		for k, v := range perr.Fields {
			if _, seen := verr.Fields[k]; !seen {
				verr.Add(k, v)
			}
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return summary, nil
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		return "must be a time in HH:MM format"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}

func weeklyPhotoKey(studentID primitive.ObjectID, year, month, week int, pos domain.PhotoPosition, at time.Time) string {
	return fmt.Sprintf("weekly-summary/%s/%d-%d-week%d/%s_%d.jpg", studentID.Hex(), year, month, week, pos, at.UnixMilli())
}

func submissionOrderKey(coachID primitive.ObjectID) string {
	return "submissionOrder:" + coachID.Hex()
}

// recordNotification raises the unviewed flag; failures are logged only.
func recordNotification(ctx context.Context, repo repository.NotificationRepository, log *slog.Logger, coachID, studentID primitive.ObjectID, cat domain.Category, at time.Time) {
	if err := repo.Record(ctx, coachID, studentID, cat, at); err != nil {
		log.Warn("notification_record_failed",
			"coach_id", coachID.Hex(),
			"student_id", studentID.Hex(),
			"category", cat,
			"error", err,
		)
	}
}
