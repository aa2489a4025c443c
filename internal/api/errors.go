package api

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/photo"
	"alcyxob/fitcoach/internal/repository"
	"alcyxob/fitcoach/internal/service"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors to HTTP responses. Unknown errors become
// a 500 and are attached to the context for the request logger.
func respondError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	var cooldown *domain.CooldownError
	var notSaved *service.SummaryNotSavedError

	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Validation failed.", "fields": verr.Fields})
	case errors.As(err, &cooldown):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":           cooldown.Error(),
			"nextAllowedDate": isoDate(cooldown.NextAllowedDate),
		})
	case errors.As(err, &notSaved):
		_ = c.Error(err)
		urls := make(map[string]string, len(notSaved.PhotoURLs))
		for pos, u := range notSaved.PhotoURLs {
			urls[string(pos)] = u
		}
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error":     "The weekly summary could not be saved. Please try again.",
			"warning":   "Your photos were uploaded but the summary was not recorded.",
			"photoUrls": urls,
		})

	case errors.Is(err, photo.ErrTooLarge):
		abortWithError(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrConfirmationRequired),
		errors.Is(err, service.ErrEmptyText),
		errors.Is(err, service.ErrStudentNotRole),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrInvalidPlanKind),
		errors.Is(err, photo.ErrEmpty),
		errors.Is(err, photo.ErrUnsupported):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAuthenticationFailed):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrStudentNotManaged),
		errors.Is(err, service.ErrPlanAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrSummaryNotFound),
		errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrNoActivePlan),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, repository.ErrNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUserAlreadyExists),
		errors.Is(err, service.ErrStudentAlreadyTaken),
		errors.Is(err, service.ErrNoCoachAssigned):
		abortWithError(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred.")
	}
}

// isoDate renders calendar dates in JSON fields; messages use the display layout.
func isoDate(t time.Time) string {
	return domain.DateOf(t).Format(time.DateOnly)
}
