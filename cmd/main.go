package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/specbridge/specbridge-backend/internal/data/db"
	"github.com/specbridge/specbridge-backend/internal/data/graph"
	"github.com/specbridge/specbridge-backend/internal/data/repos/audit"
	"github.com/specbridge/specbridge-backend/internal/docsync"
	"github.com/specbridge/specbridge-backend/internal/handlers"
	"github.com/specbridge/specbridge-backend/internal/observability"
	"github.com/specbridge/specbridge-backend/internal/platform/filestore"
	"github.com/specbridge/specbridge-backend/internal/platform/logger"
	"github.com/specbridge/specbridge-backend/internal/platform/neo4jdb"
	"github.com/specbridge/specbridge-backend/internal/realtime/bus"
	"github.com/specbridge/specbridge-backend/internal/server"
	"github.com/specbridge/specbridge-backend/internal/services"
	"github.com/specbridge/specbridge-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Tracing (no-op unless OTEL_ENABLED)
	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "specbridge",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "", log),
	})
	if shutdownOTel != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownOTel(shutdownCtx)
		}()
	}

	// Graph store (source of truth)
	log.Info("Connecting to Neo4j from main...")
	neoClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Error("Neo4j init failed", "error", err)
		os.Exit(1)
	}
	defer neoClient.Close(ctx)
	graphStore := graph.NewStore(neoClient, log)
	graphStore.EnsureSchema(ctx)

	// Audit database (optional)
	var (
		syncRunRepo      audit.SyncRunRepo
		refChangeLogRepo audit.RefChangeLogRepo
	)
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Warn("Postgres init failed, audit trail disabled", "error", err)
	} else {
		if err := postgresService.AutoMigrateAll(); err != nil {
			log.Warn("Postgres auto migration failed", "error", err)
		}
		thePG := postgresService.DB()
		syncRunRepo = audit.NewSyncRunRepo(thePG, log)
		refChangeLogRepo = audit.NewRefChangeLogRepo(thePG, log)
	}

	// Raw text blobs
	files, err := filestore.NewLocalStore(log)
	if err != nil {
		log.Error("Filestore init failed", "error", err)
		os.Exit(1)
	}

	// Event bus (optional)
	var events bus.Bus
	if eventBus, err := bus.NewRedisBus(log); err != nil {
		log.Warn("Redis init failed, event publishing disabled", "error", err)
	} else {
		events = eventBus
		defer events.Close()
	}

	// Services
	log.Info("Setting up services from main...")
	engine := docsync.NewEngine(graphStore, log)
	documentService := services.NewDocumentService(engine, graphStore, files, syncRunRepo, events, log)
	duplicateService := services.NewDuplicateService(engine, refChangeLogRepo, events, log)
	requirementService := services.NewRequirementService(engine, log)

	// Handlers
	log.Info("Setting up handlers from main...")
	documentHandler := handlers.NewDocumentHandler(documentService)
	duplicateHandler := handlers.NewDuplicateHandler(duplicateService)
	requirementHandler := handlers.NewRequirementHandler(requirementService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ServiceName:        "specbridge",
		DocumentHandler:    documentHandler,
		DuplicateHandler:   duplicateHandler,
		RequirementHandler: requirementHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
