package api

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/realtime"
	"alcyxob/fitcoach/internal/service"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// sseHeartbeat keeps idle event streams open through proxies.
const sseHeartbeat = 25 * time.Second

// CoachHandler serves the coach side: roster, review queue, feedback,
// notification counters, plans, messages, photos and the live event feed.
type CoachHandler struct {
	roster        service.RosterService
	review        service.ReviewService
	feedback      service.FeedbackService
	notifications service.NotificationService
	plans         service.PlanService
	messages      service.MessageService
	photos        service.PhotoService
	feed          realtime.Feed
	log           *slog.Logger
}

type CoachDeps struct {
	Roster        service.RosterService
	Review        service.ReviewService
	Feedback      service.FeedbackService
	Notifications service.NotificationService
	Plans         service.PlanService
	Messages      service.MessageService
	Photos        service.PhotoService
	// Feed may be nil when change streams are unavailable.
	Feed realtime.Feed
	Log  *slog.Logger
}

func NewCoachHandler(d CoachDeps) *CoachHandler {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return &CoachHandler{
		roster:        d.Roster,
		review:        d.Review,
		feedback:      d.Feedback,
		notifications: d.Notifications,
		plans:         d.Plans,
		messages:      d.Messages,
		photos:        d.Photos,
		feed:          d.Feed,
		log:           log,
	}
}

// --- Request Structs ---

type AddStudentRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type CompleteSummaryRequest struct {
	Confirm bool `json:"confirm"`
}

type TextRequest struct {
	Text string `json:"text"`
}

type CreatePlanRequest struct {
	Kind    domain.PlanKind `json:"kind" binding:"required,oneof=diet workout protocol"`
	Title   string          `json:"title" binding:"required"`
	Content string          `json:"content" binding:"required"`
}

type SendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// --- Roster ---

// AddStudentByEmail godoc
// @Summary Add a student to the coach's roster
// @Tags Coach
// @Param request body AddStudentRequest true "Student email"
// @Success 200 {object} UserResponse
// @Failure 404 {object} gin.H "Student not found"
// @Failure 409 {object} gin.H "Student already has another coach"
// @Router /coach/students [post]
func (h *CoachHandler) AddStudentByEmail(c *gin.Context) {
	coachID, ok := currentUser(c)
	if !ok {
		return
	}
	var req AddStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	student, err := h.roster.AddStudentByEmail(c.Request.Context(), coachID, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(student))
}

// ListStudents returns the roster with each student's notification badge.
func (h *CoachHandler) ListStudents(c *gin.Context) {
	coachID, ok := currentUser(c)
	if !ok {
		return
	}
	entries, err := h.roster.ListStudents(c.Request.Context(), coachID)
	if err != nil {
		respondError(c, err)
		return
	}

	type studentRow struct {
		UserResponse
		Notifications service.CountsView `json:"notifications"`
	}
	rows := make([]studentRow, 0, len(entries))
	for i := range entries {
		rows = append(rows, studentRow{UserResponse: MapUserToResponse(&entries[i].User), Notifications: entries[i].Notifications})
	}
	c.JSON(http.StatusOK, rows)
}

// --- Review queue ---

// ListQueue godoc
// @Summary List the coach's weekly summaries, pending first in arrival order
// @Tags Coach
// @Param status query string false "pending, completed or all"
// @Router /coach/queue [get]
func (h *CoachHandler) ListQueue(c *gin.Context) {
	coachID, ok := currentUser(c)
	if !ok {
		return
	}
	filter, err := service.ParseQueueFilter(c.Query("status"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := h.review.ListForCoach(c.Request.Context(), coachID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// OpenSummary returns one summary and marks it viewed.
func (h *CoachHandler) OpenSummary(c *gin.Context) {
	coachID, ok := currentUser(c)
	if !ok {
		return
	}
	summaryID, ok := pathID(c, "id")
	if !ok {
		return
	}
	summary, err := h.review.Open(c.Request.Context(), coachID, summaryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// CompleteSummary godoc
// @Summary Mark a weekly summary as reviewed
// @Description Requires {"confirm": true}. Completing twice is a no-op.
// @Tags Coach
// @Router /coach/summaries/{id}/complete [post]
func (h *CoachHandler) CompleteSummary(c *gin.Context) {
	coachID, ok := currentUser(c)
	if !ok {
		return
	}
	summaryID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CompleteSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	summary, err := h.review.MarkComplete(c.Request.Context(), coachID, summaryID, req.Confirm)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// --- Feedback ---

func (h *CoachHandler) SendFeedback(c *gin.Context) {
	h.writeText(c, h.feedback.SendFeedback)
}

func (h *CoachHandler) SetPrivateNotes(c *gin.Context) {
	h.writeText(c, h.feedback.SetPrivateNotes)
}

func (h *CoachHandler) SendPublicObservation(c *gin.Context) {
	h.writeText(c, h.feedback.SendPublicObservation)
}

type summaryTextWriter func(ctx context.Context, coachID, summaryID primitive.ObjectID, text string) (*domain.WeeklySummary, error)

func (h *CoachHandler) writeText(c *gin.Context, write summaryTextWriter) {
	coachID, ok := currentUser(c)
	if !ok {
		return
	}
	summaryID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	summary, err := write(c.Request.Context(), coachID, summaryID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// --- Notifications ---

func (h *CoachHandler) GetNotifications(c *gin.Context) {
	coachID, ok := currentUser(c)
	if !ok {
		return
	}
	studentID, ok := pathID(c, "studentId")
	if !ok {
		return
	}
	view, err := h.notifications.Counts(c.Request.Context(), coachID, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// MarkNotificationsViewed is called when the coach opens a detail tab.
func (h *CoachHandler) MarkNotificationsViewed(c *gin.Context) {
	coachID, ok := currentUser(c)
	if !ok {
		return
	}
	studentID, ok := pathID(c, "studentId")
	if !ok {
		return
	}
	view, err := h.notifications.MarkViewed(c.Request.Context(), coachID, studentID, c.Param("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// StreamEvents pushes invalidation events for one student over SSE.
// Notification events carry the fresh counters so the badge needs no refetch.
func (h *CoachHandler) StreamEvents(c *gin.Context) {
	coachID, ok := currentUser(c)
	if !ok {
		return
	}
	studentID, ok := pathID(c, "studentId")
	if !ok {
		return
	}
	if h.feed == nil {
		abortWithError(c, http.StatusServiceUnavailable, "Live updates are not available.")
		return
	}
	ctx := c.Request.Context()

	view, err := h.notifications.Counts(ctx, coachID, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	events, err := h.feed.Subscribe(ctx, coachID, studentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(string(realtime.TopicNotifications), view)

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case ev, open := <-events:
			if !open {
				return false
			}
			if ev.Topic == realtime.TopicNotifications {
				view, err := h.notifications.Counts(ctx, coachID, studentID)
				if err != nil {
					h.log.Warn("sse_counts_failed", "coach_id", coachID.Hex(), "student_id", studentID.Hex(), "error", err)
					return false
				}
				c.SSEvent(string(ev.Topic), view)
				return true
			}
			c.SSEvent(string(ev.Topic), ev)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", strconv.FormatInt(time.Now().Unix(), 10))
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// --- Plans ---

func (h *CoachHandler) CreatePlan(c *gin.Context) {
	coachID, ok := currentUser(c)
	if !ok {
		return
	}
	studentID, ok := pathID(c, "studentId")
	if !ok {
		return
	}
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	plan, err := h.plans.Create(c.Request.Context(), coachID, studentID, req.Kind, req.Title, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

func (h *CoachHandler) ListPlans(c *gin.Context) {
	coachID, ok := currentUser(c)
	if !ok {
		return
	}
	studentID, ok := pathID(c, "studentId")
	if !ok {
		return
	}
	plans, err := h.plans.List(c.Request.Context(), coachID, studentID, domain.PlanKind(c.Query("kind")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

func (h *CoachHandler) ActivatePlan(c *gin.Context) {
	coachID, ok := currentUser(c)
	if !ok {
		return
	}
	planID, ok := pathID(c, "planId")
	if !ok {
		return
	}
	plan, err := h.plans.Activate(c.Request.Context(), coachID, planID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// --- Messages ---

func (h *CoachHandler) ListMessages(c *gin.Context) {
	coachID, ok := currentUser(c)
	if !ok {
		return
	}
	studentID, ok := pathID(c, "studentId")
	if !ok {
		return
	}
	msgs, err := h.messages.ConversationForCoach(c.Request.Context(), coachID, studentID, queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *CoachHandler) SendMessage(c *gin.Context) {
	coachID, ok := currentUser(c)
	if !ok {
		return
	}
	studentID, ok := pathID(c, "studentId")
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	msg, err := h.messages.SendFromCoach(c.Request.Context(), coachID, studentID, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// --- Photos ---

func (h *CoachHandler) ListPhotos(c *gin.Context) {
	coachID, ok := currentUser(c)
	if !ok {
		return
	}
	studentID, ok := pathID(c, "studentId")
	if !ok {
		return
	}
	photos, err := h.photos.ListForCoach(c.Request.Context(), coachID, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, photos)
}

// queryLimit reads ?limit=, 0 when absent or malformed.
func queryLimit(c *gin.Context) int64 {
	n, err := strconv.ParseInt(c.Query("limit"), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
