package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"thoth/backend/internal/adapter"
	"thoth/backend/internal/agent"
	"thoth/backend/internal/memory"
	"thoth/backend/internal/server"
	"thoth/backend/internal/services"
	"thoth/backend/internal/storage"
	"thoth/backend/internal/tools"
	"thoth/backend/internal/twilio"
	"thoth/backend/pkg/config"
	"thoth/backend/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Open the database and run migrations
	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer store.Close()
	log.Info("Database ready", zap.String("path", cfg.DatabasePath))

	// Initialize dependencies
	twilioClient := twilio.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber)
	if !twilioClient.Configured() {
		log.Warn("Twilio credentials not set; outbound SMS disabled")
	}

	dbMemory := memory.NewDBBackend(store)
	localMemory := memory.NewFileBackend(cfg.DataDir)

	registry, err := tools.BuildRegistry(store, twilioClient, dbMemory)
	if err != nil {
		log.Fatal("Failed to build tool registry", zap.Error(err))
	}

	llm := adapter.NewOpenAI(cfg.OpenAIAPIKey)
	orch := agent.NewOrchestrator(llm, registry, cfg.ModelName)
	service := agent.NewService(orch, agent.NewSummarizer(llm), agent.NewMemoryUpdater(llm), dbMemory)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(server.Deps{
		Store:        store,
		DBMemory:     dbMemory,
		LocalMemory:  localMemory,
		Service:      service,
		Orchestrator: orch,
		SMS:          twilioClient,
		OwnerPhone:   cfg.OwnerPhoneNumber,
		SessionTTL:   time.Duration(cfg.SessionTTLMinutes) * time.Minute,
	})
	router := srv.Router()

	// Background maintenance
	scheduler := services.NewScheduler(store, time.Hour)
	if err := scheduler.Start(); err != nil {
		log.Warn("Failed to start scheduler", zap.Error(err))
	}

	// Start server
	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	scheduler.Stop()

	log.Info("Server exited")
}
