package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hirewatch/scraper-http-service/common/browser"
	"github.com/hirewatch/scraper-http-service/common/config"
	"github.com/hirewatch/scraper-http-service/common/constants"
	"github.com/hirewatch/scraper-http-service/common/db"
	"github.com/hirewatch/scraper-http-service/common/logger"
	"github.com/hirewatch/scraper-http-service/common/messaging"
	"github.com/hirewatch/scraper-http-service/common/services"
	"github.com/hirewatch/scraper-http-service/common/storage"
	"github.com/hirewatch/scraper-http-service/common/work"
	"github.com/hirewatch/scraper-http-service/scheduler"
	"github.com/hirewatch/scraper-http-service/search"
	"github.com/hirewatch/scraper-http-service/workflow"

	"github.com/rs/zerolog/log"

	"github.com/joho/godotenv"

	_ "github.com/hirewatch/scraper-http-service/docs"
)

// @title          Scraper HTTP Service API
// @version        1.0
// @description    API for building and running AI-generated job board scrapers

// @contact.name  API Support
// @contact.url   http://www.example.com/support
// @contact.email support@example.com

// @license.name Apache 2.0
// @license.url  http://www.apache.org/licenses/LICENSE-2.0.html

// @host     localhost:8080
// @BasePath /v1
// @schemes  http https

// @securityDefinitions.apikey ApiKeyAuth
// @in                         header
// @name                       X-API-KEY

func main() {
	// INITIATE CONFIGURATION
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("Error loading .env file, using environment variables")
	}

	cfg := config.DefaultConfig()
	cfg.LoadFromEnv()

	logger.InitializeLogging()

	// Create a base context with cancel for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// INITIATE DATABASES
	dbConn, err := db.SetupDatabase(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to setup database")
	}
	defer dbConn.Close()

	// INITIATE NATS CLIENT
	natsClient, err := messaging.SetupNatsBroker(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to setup NATS client")
	}
	defer natsClient.Close()

	if _, err := messaging.EnsureStream(ctx, natsClient, messaging.ProgressStreamName, []string{constants.WorkflowProgressTopicPrefix + ".>"}); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure progress stream")
	}

	// The artifact store is optional. Without it workflows still run,
	// screenshot and configuration artifacts are just not archived.
	var artifactStorage storage.StorageService
	switch {
	case cfg.GCS.Bucket != "":
		artifactStorage, err = storage.NewGCSStorage(ctx, storage.GCSConfig{
			ProjectID:       cfg.GCS.ProjectID,
			CredentialsFile: cfg.GCS.CredentialsFile,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to setup GCS storage")
		}
	case cfg.GCS.LocalDir != "":
		artifactStorage, err = storage.NewLocalStorage(cfg.GCS.LocalDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to setup local artifact storage")
		}
	default:
		log.Warn().Msg("No artifact store configured, artifact archiving disabled")
	}

	// SERVICES
	targetService := services.NewTargetRepository(dbConn.Queries)
	jobService := services.NewJobRepository(dbConn.Queries, dbConn.Redis)
	runLogService := services.NewRunLogRepository(dbConn.Queries)
	browserManager := browser.NewManager()
	searchClient := search.NewClient(cfg.Search)

	// WORKFLOW MANAGER
	workflowManager := workflow.NewManager(cfg, workflow.Deps{
		Targets: targetService,
		Jobs:    jobService,
		RunLogs: runLogService,
		Browser: browserManager,
		Search:  searchClient,
		Broker:  natsClient,
		Storage: artifactStorage,
	})
	defer workflowManager.Shutdown()

	// SCHEDULER
	sched, err := scheduler.New(cfg, scheduler.Deps{
		Targets: targetService,
		Jobs:    jobService,
		RunLogs: runLogService,
		Browser: browserManager,
		Locks:   work.NewWorkManager(dbConn),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer sched.Stop()

	if err := sched.BindBroker(natsClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to subscribe to run topic")
	}

	// INITIATE SERVER
	server, err := NewAppHttpServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create the server")
	}

	// Inject dependencies
	server.SetDB(dbConn)
	server.SetNatsClient(natsClient)
	server.SetWorkflowManager(workflowManager)

	// Setup routes
	server.setupRoute()

	// Start server in a goroutine
	go func() {
		if err := server.start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			cancel()
		}
	}()

	log.Info().Str("address", cfg.Listen.Addr()).Msg("Server started successfully")
	log.Info().Str("swagger", fmt.Sprintf("http://%s/swagger/index.html", cfg.Listen.Addr())).Msg("Swagger documentation available at")

	// Wait for shutdown signal
	<-shutdown
	log.Info().Msg("Shutdown signal received")

	// Create a timeout context for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Server gracefully stopped")
}
