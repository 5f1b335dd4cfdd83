package main

import (
	"fmt"
	"log"
	"os"

	"flowdeck/internal/api/handler"
	"flowdeck/internal/config"
	"flowdeck/internal/core/ports"
	"flowdeck/internal/core/postgres/repository"
	redisinfra "flowdeck/internal/infrastructure/redis"
	"flowdeck/internal/infrastructure/storage"
	"flowdeck/internal/logging"
	"flowdeck/internal/metrics"
	"flowdeck/internal/service"
	"flowdeck/internal/service/retention"
	"flowdeck/internal/tasks"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// 1. Configuration and logging
	cfg, err := config.Load(os.Getenv("FLOWDECK_CONFIG_DIR"))
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger := logging.New(cfg.Log)

	// 2. Database connection
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	// 3. Redis: event bus, blob stores, index processor
	redisClient, err := redisinfra.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to redis")
	}
	blobStore := storage.NewRedisStore(redisClient)
	var archiveStore ports.BlobStore
	if cfg.Archive.Enabled {
		archiveStore = storage.NewRedisStoreWithPrefix(redisClient, "flowdeck:archive:")
	}
	eventBus := redisinfra.NewRunEventBus(redisClient)
	indexProcessor := redisinfra.NewIndexProcessor(redisClient, logger)

	// 4. Repositories
	runRepo := repository.NewWorkflowRunRepository(db, blobStore, logger)
	nodeExecRepo := repository.NewNodeExecutionRepository(db, blobStore, logger)
	triggerLogRepo := repository.NewTriggerLogRepository(db)

	// 5. Metrics
	registry := prometheus.NewRegistry()
	retentionMetrics := metrics.NewRetention(registry)

	// 6. Services
	runService := service.NewWorkflowRunService(runRepo, eventBus, logger)
	conversationService := service.NewConversationService(db, logger)
	messageService := service.NewMessageService(db, logger)
	endUserService := service.NewEndUserService(db, logger)
	datasetService := service.NewDatasetService(db, logger)

	deleter := retention.NewArchivedWorkflowRunDeletion(
		runRepo, nodeExecRepo, triggerLogRepo, logger,
		retention.WithDryRun(cfg.Retention.DryRun),
		retention.WithArchiveStore(archiveStore),
		retention.WithEventBus(eventBus),
		retention.WithMetrics(retentionMetrics),
	)
	restorer := retention.NewWorkflowRunRestore(db, cfg.Retention.DryRun, logger)

	removeAppTask := tasks.NewRemoveAppTask(db, blobStore, archiveStore, logger)
	cleanDatasetTask := tasks.NewCleanDatasetTask(db, blobStore, indexProcessor, logger)

	// 7. Handlers and routes
	runHandler := handler.NewWorkflowRunHandler(runService)
	retentionHandler := handler.NewRetentionHandler(deleter, restorer)
	conversationHandler := handler.NewConversationHandler(conversationService, endUserService)
	messageHandler := handler.NewMessageHandler(messageService)
	taskHandler := handler.NewTaskHandler(removeAppTask, cleanDatasetTask)
	datasetHandler := handler.NewDatasetHandler(datasetService)

	router := gin.Default()
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	{
		api.GET("/workflow-runs/:run_id", runHandler.GetRun)
		api.POST("/workflow-runs/:run_id/pause", runHandler.PauseRun)
		api.POST("/workflow-runs/:run_id/resume", runHandler.ResumeRun)
		api.DELETE("/workflow-pauses/:pause_id", runHandler.DeletePause)

		api.DELETE("/retention/workflow-runs/:run_id", retentionHandler.DeleteRun)
		api.POST("/retention/workflow-runs/batch-delete", retentionHandler.DeleteBatch)
		api.POST("/retention/workflow-runs/restore", retentionHandler.RestoreRun)

		apps := api.Group("/tenants/:tenant_id/apps/:app_id")
		{
			apps.GET("/conversations", conversationHandler.List)
			apps.POST("/conversations/:conversation_id/name", conversationHandler.Rename)
			apps.DELETE("/conversations/:conversation_id", conversationHandler.Delete)
			apps.GET("/conversations/:conversation_id/messages", messageHandler.List)
			apps.POST("/messages/:message_id/annotations", messageHandler.CreateAnnotation)
			apps.GET("/annotations", messageHandler.ListAnnotations)
			apps.DELETE("/annotations/:annotation_id", messageHandler.DeleteAnnotation)
			apps.POST("/remove-data", taskHandler.RemoveAppData)
		}
		api.POST("/tenants/:tenant_id/datasets/clean", taskHandler.CleanDataset)
		api.GET("/tenants/:tenant_id/datasets/:dataset_id", datasetHandler.Get)
		api.GET("/tenants/:tenant_id/datasets/:dataset_id/documents", datasetHandler.ListDocuments)
		api.GET("/tenants/:tenant_id/datasets/:dataset_id/documents/:document_id/segments", datasetHandler.ListSegments)
		api.POST("/collection-bindings", datasetHandler.GetOrCreateCollectionBinding)
	}

	// 8. Retention schedule
	if cfg.Retention.Enabled {
		scheduler := retention.NewScheduler(deleter, cfg.Retention.TenantIDs, cfg.Retention.Days, cfg.Retention.BatchLimit, logger)
		if err := scheduler.Start(cfg.Retention.Schedule); err != nil {
			logger.WithError(err).Fatal("Failed to start retention schedule")
		}
		defer scheduler.Stop()
	}

	// 9. Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.WithField("addr", addr).Info("Server starting")
	if err := router.Run(addr); err != nil {
		logger.WithError(err).Fatal("Failed to start server")
	}
}
