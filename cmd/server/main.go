package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pawarp19/Esignnew/internal/api"
	"github.com/pawarp19/Esignnew/internal/config"
	"github.com/pawarp19/Esignnew/internal/db"
	"github.com/pawarp19/Esignnew/internal/services"
	"github.com/pawarp19/Esignnew/pkg/logger"
	"github.com/pawarp19/Esignnew/pkg/metrics"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zapLogger, err := logger.NewLogger(cfg.Logging.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	config.LogConfig(cfg, zapLogger)

	database, err := db.Initialize(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}

	metricsCollector := metrics.NewMetricsCollector()

	storageService, err := services.NewStorageService(cfg.Storage.UploadsDir, cfg.Storage.SignedDir, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize file storage", zap.Error(err))
	}

	documentService := services.NewDocumentService(database, zapLogger, metricsCollector)

	docusignService, err := services.NewDocuSignService(cfg.DocuSign, storageService, zapLogger, metricsCollector)
	if err != nil {
		zapLogger.Fatal("Failed to initialize DocuSign gateway", zap.Error(err))
	}

	mailService := services.NewMailService(cfg.Mail, zapLogger, metricsCollector)

	router := api.NewRouter(cfg, zapLogger, metricsCollector, documentService, storageService, docusignService, mailService)
	router.SetupRoutes()

	go func() {
		if err := router.Run(":" + cfg.Server.Port); err != nil {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()
	zapLogger.Info("Server started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	if sqlDB, err := database.DB(); err == nil {
		sqlDB.Close()
	}
	zapLogger.Info("Server gracefully stopped")
}
