package main

import (
	"alcyxob/fitcoach/internal/api"
	"alcyxob/fitcoach/internal/config"
	"alcyxob/fitcoach/internal/logging"
	"alcyxob/fitcoach/internal/photo"
	"alcyxob/fitcoach/internal/push"
	"alcyxob/fitcoach/internal/realtime"
	"alcyxob/fitcoach/internal/repository/mongo"
	"alcyxob/fitcoach/internal/scheduler"
	"alcyxob/fitcoach/internal/service"
	"alcyxob/fitcoach/internal/storage"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// @title Fitcoach API
// @version 1.0
// @description Weekly adherence summaries and the coach review queue.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log, os.Stdout)
	slog.SetDefault(log)
	defer logging.Close()

	if err := run(cfg, log); err != nil {
		log.Error("server_failed", "error", err)
		logging.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	log.Info("server_starting", "address", cfg.Server.Address, "timezone", cfg.Server.Timezone)
	loc := cfg.Server.Location()

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Error("mongo_disconnect_failed", "error", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	// Unique indexes back the notification and ordering guarantees, so they
	// must exist before serving.
	idxCtx, cancelIdx := context.WithTimeout(context.Background(), time.Minute)
	err = mongo.EnsureIndexes(idxCtx, appDB)
	cancelIdx()
	if err != nil {
		return err
	}

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(context.Background(), cfg.S3, log)
	if err != nil {
		return err
	}

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	summaryRepo := mongo.NewMongoWeeklySummaryRepository(appDB)
	slotRepo := mongo.NewMongoSubmissionSlotRepository(appDB)
	sequenceRepo := mongo.NewMongoSequenceRepository(appDB)
	notificationRepo := mongo.NewMongoNotificationRepository(appDB)
	planRepo := mongo.NewMongoPlanRepository(appDB)
	photoRepo := mongo.NewMongoPhotoRepository(appDB)
	messageRepo := mongo.NewMongoMessageRepository(appDB)

	// --- Push transports ---
	var senders []push.Sender
	if cfg.Push.TelegramToken != "" {
		tg, err := push.NewTelegramSender(cfg.Push.TelegramToken)
		if err != nil {
			log.Warn("telegram_disabled", "error", err)
		} else {
			senders = append(senders, tg)
		}
	}
	if cfg.Push.ResendAPIKey != "" {
		senders = append(senders, push.NewEmailSender(cfg.Push.ResendAPIKey, cfg.Push.EmailFrom))
	}
	notifier := push.NewNotifier(userRepo, cfg.Push.AppBaseURL, log.With("component", "push"), senders...)

	// --- Initialize Services ---
	photoOpts := photo.Options{
		MaxBytes:     cfg.Summary.MaxPhotoBytes,
		MaxDimension: cfg.Summary.PhotoMaxDimension,
		JPEGQuality:  cfg.Summary.PhotoJPEGQuality,
	}
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	summaryService := service.NewSummaryService(service.SummaryDeps{
		Users:         userRepo,
		Summaries:     summaryRepo,
		Slots:         slotRepo,
		Sequences:     sequenceRepo,
		Notifications: notificationRepo,
		Storage:       fileStorage,
		Pusher:        notifier,
		Log:           log.With("component", "summary"),
	}, service.SummaryOptions{
		Cooldown:       cfg.Summary.Cooldown,
		ObservationTTL: cfg.Feedback.PublicObservationTTL,
		Photo:          photoOpts,
		Location:       loc,
	})
	reviewService := service.NewReviewService(userRepo, summaryRepo, nil, log.With("component", "review"))
	feedbackService := service.NewFeedbackService(summaryRepo, notifier, nil, log.With("component", "feedback"))
	notificationService := service.NewNotificationService(userRepo, notificationRepo, nil, log.With("component", "notifications"))
	rosterService := service.NewRosterService(userRepo, notificationRepo, log.With("component", "roster"))
	planService := service.NewPlanService(userRepo, planRepo, notificationRepo, notifier, nil, log.With("component", "plans"))
	messageService := service.NewMessageService(userRepo, messageRepo, notificationRepo, notifier, nil, log.With("component", "messages"))
	photoService := service.NewPhotoService(userRepo, photoRepo, notificationRepo, fileStorage, photoOpts, nil, log.With("component", "photos"))
	reminderService := service.NewReminderService(summaryRepo, notifier, loc, nil, log.With("component", "reminders"))

	// --- Scheduler ---
	sched := scheduler.New(loc, log)
	if cfg.Scheduler.Enabled {
		if err := sched.AddReminders(cfg.Scheduler.ReminderSpec, reminderService); err != nil {
			return err
		}
		sched.Start()
	}

	// --- Initialize Gin Engine ---
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestID(), api.RequestLogger(log.With("component", "http")))
	router.MaxMultipartMemory = 4 * cfg.Summary.MaxPhotoBytes

	api.SetupRoutes(router, cfg.JWT.Secret, api.Handlers{
		Auth: api.NewAuthHandler(authService),
		Coach: api.NewCoachHandler(api.CoachDeps{
			Roster:        rosterService,
			Review:        reviewService,
			Feedback:      feedbackService,
			Notifications: notificationService,
			Plans:         planService,
			Messages:      messageService,
			Photos:        photoService,
			Feed:          realtime.NewMongoFeed(appDB, log.With("component", "realtime")),
			Log:           log,
		}),
		Student: api.NewStudentHandler(summaryService, planService, messageService, photoService),
	})

	// --- Start HTTP Server ---
	// No WriteTimeout: the SSE endpoint keeps responses open.
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server_listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case sig := <-quit:
		log.Info("server_shutting_down", "signal", sig.String())
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	sched.Stop(ctxShutdown)
	if err := server.Shutdown(ctxShutdown); err != nil {
		return err
	}
	log.Info("server_exited")
	return nil
}
