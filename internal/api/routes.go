package api

import (
	"alcyxob/fitcoach/internal/domain"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers groups the handlers mounted by SetupRoutes.
type Handlers struct {
	Auth    *AuthHandler
	Coach   *CoachHandler
	Student *StudentHandler
}

func SetupRoutes(router *gin.Engine, jwtSecret string, h Handlers) {
	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", h.Auth.Register)
			authGroup.POST("/login", h.Auth.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", h.Auth.Me)
		protected.PUT("/me/telegram", h.Auth.LinkTelegram)

		// --- Coach Specific Routes ---
		coachGroup := protected.Group("/coach")
		coachGroup.Use(RoleMiddleware(domain.RoleCoach))
		{
			coachGroup.POST("/students", h.Coach.AddStudentByEmail)
			coachGroup.GET("/students", h.Coach.ListStudents)

			// --- Review queue ---
			coachGroup.GET("/queue", h.Coach.ListQueue)
			coachGroup.GET("/summaries/:id", h.Coach.OpenSummary)
			coachGroup.POST("/summaries/:id/complete", h.Coach.CompleteSummary)
			coachGroup.PUT("/summaries/:id/feedback", h.Coach.SendFeedback)
			coachGroup.PUT("/summaries/:id/private-notes", h.Coach.SetPrivateNotes)
			coachGroup.PUT("/summaries/:id/public-observation", h.Coach.SendPublicObservation)

			// --- Student detail view ---
			coachGroup.GET("/students/:studentId/notifications", h.Coach.GetNotifications)
			coachGroup.POST("/students/:studentId/notifications/:category/viewed", h.Coach.MarkNotificationsViewed)
			coachGroup.GET("/students/:studentId/events", h.Coach.StreamEvents)
			coachGroup.POST("/students/:studentId/plans", h.Coach.CreatePlan)
			coachGroup.GET("/students/:studentId/plans", h.Coach.ListPlans)
			coachGroup.POST("/plans/:planId/activate", h.Coach.ActivatePlan)
			coachGroup.GET("/students/:studentId/messages", h.Coach.ListMessages)
			coachGroup.POST("/students/:studentId/messages", h.Coach.SendMessage)
			coachGroup.GET("/students/:studentId/photos", h.Coach.ListPhotos)
		}

		// --- Student Specific Routes ---
		studentGroup := protected.Group("/student")
		studentGroup.Use(RoleMiddleware(domain.RoleStudent))
		{
			studentGroup.GET("/summaries/gate", h.Student.Gate)
			studentGroup.POST("/summaries", h.Student.CreateSummary)
			studentGroup.GET("/summaries", h.Student.ListSummaries)
			studentGroup.GET("/summaries/:id", h.Student.GetSummary)
			studentGroup.GET("/plans/active", h.Student.ActivePlan)
			studentGroup.GET("/messages", h.Student.ListMessages)
			studentGroup.POST("/messages", h.Student.SendMessage)
			studentGroup.POST("/photos", h.Student.UploadPhoto)
			studentGroup.GET("/photos", h.Student.ListPhotos)
		}
	}
}
