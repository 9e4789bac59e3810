package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bloom-backend/internal/config"
	"bloom-backend/internal/database"
	"bloom-backend/internal/handlers"
	"bloom-backend/internal/logger"
	"bloom-backend/internal/middleware"
	"bloom-backend/internal/repository"
	"bloom-backend/internal/router"
	"bloom-backend/internal/services"
	"bloom-backend/internal/storage"
	"bloom-backend/internal/websocket"
	"bloom-backend/internal/worker"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("starting Bloom backend", "env", cfg.Env)

	// ──── Step 2: Run Database Migrations ────
	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database migration failed", "error", err)
	}
	log.Info("database migrations applied", "version", version)

	// ──── Step 3: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("PostgreSQL connection failed", "error", err)
	}
	defer pool.Close()
	log.Info("PostgreSQL connected")

	// ──── Step 4: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatal("Redis connection failed", "error", err)
	}
	defer redisClients.Close()
	log.Info("Redis connected")

	// ──── Step 5: Initialize Blob Storage ────
	var (
		store      storage.Store
		uploadsDir string
	)
	switch cfg.StorageType {
	case "gcs":
		gcs, err := storage.NewGCS(context.Background(), cfg.GCSBucket, cfg.GCSCDNDomain)
		if err != nil {
			log.Fatal("GCS client initialization failed", "error", err)
		}
		defer gcs.Close()
		store = gcs
		log.Info("GCS storage ready", "bucket", cfg.GCSBucket)
	default:
		// The directory is not created here: a missing gallery root is reported
		// to admins on upload, the same way a missing bucket is.
		store = storage.NewLocal(cfg.StoragePath, cfg.PublicBaseURL+"/uploads")
		uploadsDir = cfg.StoragePath
		log.Info("local storage ready", "path", cfg.StoragePath)
	}

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	galleryRepo := repository.NewGalleryRepo(pool)
	bookingRepo := repository.NewBookingRepo(pool)
	contactRepo := repository.NewContactRepo(pool)

	// ──── Step 6: Initialize Gemini Client ────
	var generator services.ReplyGenerator
	if cfg.GeminiAPIKey != "" {
		geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs, log)
		if err != nil {
			log.Fatal("Gemini client initialization failed", "error", err)
		}
		defer geminiService.Close()
		generator = geminiService
		log.Info("Gemini client initialized", "model", cfg.GeminiModel)
	} else {
		log.Warn("GEMINI_API_KEY not set, chat answers from keyword rules only")
	}

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	identityService := services.NewIdentityService(userRepo, redisClients.Cache, log)
	authService := services.NewAuthService(userRepo, redisClients.Cache, jwtAuth, identityService, cfg.AdminEmails)
	if promoted, err := authService.PromoteAdmins(context.Background()); err != nil {
		log.Error("admin bootstrap failed", "error", err)
	} else if promoted > 0 {
		log.Info("admin accounts promoted", "count", promoted)
	}
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.StudioInbox, cfg.FrontendURL, log)
	notificationQueue := services.NewNotificationQueue(redisClients.Cache, emailService)
	chatService := services.NewChatService(generator, cfg.ChatGalleryImages, cfg.ChatTimeout, log)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, services.IdentityChannel, log)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go wsHub.Run(hubCtx)
	log.Info("WebSocket hub started")

	galleryService := services.NewGalleryService(store, galleryRepo, identityService, wsHub, cfg.UploadConcurrency, cfg.UploadTimeout, log)

	// ──── Step 8: Start Background Workers ────
	workerPool := worker.NewPool(redisClients.Cache, emailService, cfg.NotificationWorkers, log)
	workerPool.Start()

	reconciler := services.NewReconcileScheduler(store, galleryRepo, cfg.ReconcileInterval, cfg.ReconcileGrace, log)
	reconciler.Start()

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService, identityService)
	chatHandler := handlers.NewChatHandler(chatService)
	galleryHandler := handlers.NewGalleryHandler(galleryService, log)
	bookingHandler := handlers.NewBookingHandler(bookingRepo, notificationQueue, log)
	contactHandler := handlers.NewContactHandler(contactRepo, notificationQueue, log)

	// ──── Step 9: Start HTTP Server ────
	r := router.New(
		log,
		jwtAuth,
		identityService,
		authHandler,
		chatHandler,
		galleryHandler,
		bookingHandler,
		contactHandler,
		wsHub,
		uploadsDir,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 2 * time.Minute,
		// Uploads run every file to completion before responding.
		WriteTimeout: cfg.UploadTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")
		workerPool.Stop()
		reconciler.Stop()
		stopHub()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Info("Bloom backend ready",
		"api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port),
		"ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port))

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("server error", "error", err)
	}
}
