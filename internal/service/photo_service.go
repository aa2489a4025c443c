package service

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/photo"
	"alcyxob/fitcoach/internal/repository"
	"alcyxob/fitcoach/internal/storage"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PhotoService handles progress photos sent outside the weekly summary.
type PhotoService interface {
	Upload(ctx context.Context, studentID primitive.ObjectID, body io.Reader, caption string) (*domain.Photo, error)
	ListForCoach(ctx context.Context, coachID, studentID primitive.ObjectID) ([]domain.Photo, error)
	ListForStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.Photo, error)
}

type photoService struct {
	users         repository.UserRepository
	photos        repository.PhotoRepository
	notifications repository.NotificationRepository
	storage       storage.FileStorage
	opts          photo.Options
	now           Clock
	log           *slog.Logger
}

// NewPhotoService creates a new instance of photoService.
func NewPhotoService(
	users repository.UserRepository,
	photos repository.PhotoRepository,
	notifications repository.NotificationRepository,
	fileStorage storage.FileStorage,
	opts photo.Options,
	now Clock,
	log *slog.Logger,
) PhotoService {
	if now == nil {
		now = systemClock
	}
	return &photoService{
		users:         users,
		photos:        photos,
		notifications: notifications,
		storage:       fileStorage,
		opts:          opts,
		now:           now,
		log:           orDefault(log),
	}
}

// Upload stores the original bytes at {studentId}/{timestamp}.{ext} and
// raises the coach's photo flag.
func (s *photoService) Upload(ctx context.Context, studentID primitive.ObjectID, body io.Reader, caption string) (*domain.Photo, error) {
	data, contentType, err := photo.Sniff(body, s.opts)
	if err != nil {
		verr := domain.NewValidationError()
		verr.Add("photo", photoErrorMessage(err))
		return nil, verr
	}

	student, err := loadStudent(ctx, s.users, studentID)
	if err != nil {
		return nil, err
	}
	coachID, err := coachOf(student)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	key := fmt.Sprintf("%s/%d.%s", studentID.Hex(), now.UnixMilli(), photo.ExtFor(contentType))
	url, err := s.storage.UploadObject(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}

	p := &domain.Photo{
		StudentID:   studentID,
		CoachID:     coachID,
		ObjectKey:   key,
		URL:         url,
		ContentType: contentType,
		Size:        int64(len(data)),
		Caption:     strings.TrimSpace(caption),
		UploadedAt:  now,
	}
	id, err := s.photos.Create(ctx, p)
	if err != nil {
		// An object without a row is unreachable, so remove it.
		if delErr := s.storage.DeleteObject(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.Error("photo_saved_metadata_failed", "student_id", studentID.Hex(), "key", key, "error", err, "delete_error", delErr)
		} else {
			s.log.Warn("photo_metadata_failed_object_removed", "student_id", studentID.Hex(), "key", key, "error", err)
		}
		return nil, err
	}
	p.ID = id

	recordNotification(ctx, s.notifications, s.log, coachID, studentID, domain.CategoryPhoto, now)
	return p, nil
}

// ListForCoach returns the student's photos with short-lived download URLs.
func (s *photoService) ListForCoach(ctx context.Context, coachID, studentID primitive.ObjectID) ([]domain.Photo, error) {
	if _, err := loadManagedStudent(ctx, s.users, coachID, studentID); err != nil {
		return nil, err
	}
	return s.list(ctx, studentID)
}

// ListForStudent returns the caller's own photos.
func (s *photoService) ListForStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.Photo, error) {
	return s.list(ctx, studentID)
}

func (s *photoService) list(ctx context.Context, studentID primitive.ObjectID) ([]domain.Photo, error) {
	photos, err := s.photos.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	for i := range photos {
		signed, err := s.storage.GeneratePresignedDownloadURL(ctx, photos[i].ObjectKey, storage.DefaultPresignedURLExpiry)
		if err != nil {
			s.log.Warn("photo_presign_failed", "photo_id", photos[i].ID.Hex(), "error", err)
			continue
		}
		photos[i].URL = signed
	}
	return photos, nil
}
