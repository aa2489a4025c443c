package api

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/service"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// StudentHandler serves the student side: weekly summaries, active plans,
// messages and ad-hoc photos.
type StudentHandler struct {
	summaries service.SummaryService
	plans     service.PlanService
	messages  service.MessageService
	photos    service.PhotoService
}

func NewStudentHandler(summaries service.SummaryService, plans service.PlanService, messages service.MessageService, photos service.PhotoService) *StudentHandler {
	return &StudentHandler{summaries: summaries, plans: plans, messages: messages, photos: photos}
}

type GateResponse struct {
	Allowed         bool    `json:"allowed"`
	NextAllowedDate *string `json:"nextAllowedDate,omitempty"`
}

// Gate tells the client whether the summary form can be opened today.
func (h *StudentHandler) Gate(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := h.summaries.Gate(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := GateResponse{Allowed: res.Allowed}
	if res.NextAllowedDate != nil {
		d := isoDate(*res.NextAllowedDate)
		resp.NextAllowedDate = &d
	}
	c.JSON(http.StatusOK, resp)
}

// CreateSummary godoc
// @Summary Submit the weekly summary
// @Description Multipart form with the summary fields and up to three photos
// @Description (frontPhoto, sidePhoto, backPhoto).
// @Tags Student
// @Accept multipart/form-data
// @Success 201 {object} domain.WeeklySummary
// @Failure 400 {object} gin.H "Validation failed, with per-field messages"
// @Failure 409 {object} gin.H "Cooldown active, with nextAllowedDate"
// @Failure 503 {object} gin.H "Photos stored but summary not saved"
// @Router /student/summaries [post]
func (h *StudentHandler) CreateSummary(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	var form domain.SummaryForm
	if err := c.ShouldBind(&form); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	var uploads []service.PhotoUpload
	for _, pos := range domain.PhotoPositions {
		fh, err := c.FormFile(string(pos) + "Photo")
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s photo: %v", pos, err))
			return
		}
		f, err := fh.Open()
		if err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s photo: %v", pos, err))
			return
		}
		defer f.Close()
		uploads = append(uploads, service.PhotoUpload{Position: pos, Body: f})
	}

	summary, err := h.summaries.Create(c.Request.Context(), studentID, form, uploads)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

func (h *StudentHandler) ListSummaries(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	summaries, err := h.summaries.ListForStudent(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *StudentHandler) GetSummary(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	summaryID, ok := pathID(c, "id")
	if !ok {
		return
	}
	summary, err := h.summaries.GetForStudent(c.Request.Context(), studentID, summaryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ActivePlan returns the student's active plan of ?kind= rendered to HTML.
func (h *StudentHandler) ActivePlan(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	view, err := h.plans.ActivePlan(c.Request.Context(), studentID, domain.PlanKind(c.Query("kind")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *StudentHandler) ListMessages(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	msgs, err := h.messages.ConversationForStudent(c.Request.Context(), studentID, queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *StudentHandler) SendMessage(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	msg, err := h.messages.SendFromStudent(c.Request.Context(), studentID, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// UploadPhoto stores an ad-hoc progress photo sent as the "photo" form file.
func (h *StudentHandler) UploadPhoto(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "A photo file is required.")
		return
	}
	f, err := fh.Open()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid photo: %v", err))
		return
	}
	defer f.Close()

	p, err := h.photos.Upload(c.Request.Context(), studentID, f, c.PostForm("caption"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *StudentHandler) ListPhotos(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	photos, err := h.photos.ListForStudent(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, photos)
}
