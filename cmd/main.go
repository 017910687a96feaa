package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"stekfinder-autopilot/internal/config"
	"stekfinder-autopilot/internal/content"
	"stekfinder-autopilot/internal/logger"
	"stekfinder-autopilot/internal/schedule"
	"stekfinder-autopilot/internal/social"
	"stekfinder-autopilot/internal/telemetry"
	"stekfinder-autopilot/middleware"
	"stekfinder-autopilot/routes"
	"stekfinder-autopilot/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.Init(cfg.GinMode)

	// Tracing (optional)
	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("stekfinder-autopilot", cfg.OTLPEndpoint)
		if err != nil {
			log.Fatal("Failed to init tracer:", err)
		}
		defer shutdown()
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	// Wire the pipeline
	store := services.NewPostStore(mongoClient.Database(cfg.DBName))

	generator, err := content.NewGenerator(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatal("Failed to create generator:", err)
	}
	defer generator.Close()

	publisher := social.NewPublisher()
	notifier := services.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
	pilot := services.NewAutopilot(store, generator, publisher, notifier)

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware())
		router.Use(middleware.EnrichTrace())
	}

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// Setup routes
	routes.SetupCronRoutes(router, cfg, pilot)
	routes.SetupAutopilotRoutes(router, cfg, store, pilot)

	// In-process scheduler (alternative to external cron triggers)
	var scheduler *schedule.Scheduler
	if cfg.SchedulerEnabled {
		scheduler = schedule.New()
		if err := scheduler.Cron("weekly-generate", cfg.GenerateCron, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			_, err := pilot.RunWeeklyGenerate(ctx)
			return err
		}); err != nil {
			log.Fatal("Failed to schedule generate job:", err)
		}
		if err := scheduler.Cron("daily-publish", cfg.PublishCron, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			_, err := pilot.RunDailyPublish(ctx)
			return err
		}); err != nil {
			log.Fatal("Failed to schedule publish job:", err)
		}
		scheduler.Start()
		logger.Info("in-process scheduler started", "generate_cron", cfg.GenerateCron, "publish_cron", cfg.PublishCron)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
