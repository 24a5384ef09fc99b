package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pawarp19/Esignnew/internal/api/handlers"
	"github.com/pawarp19/Esignnew/internal/api/middleware"
	"github.com/pawarp19/Esignnew/internal/config"
	"github.com/pawarp19/Esignnew/internal/services"
	"github.com/pawarp19/Esignnew/pkg/metrics"
	"go.uber.org/zap"
)

type Router struct {
	engine        *gin.Engine
	logger        *zap.Logger
	metrics       *metrics.MetricsCollector
	docHandler    *handlers.DocumentHandler
	reqMiddleware *middleware.RequestMiddleware
	storage       *services.StorageService
}

func NewRouter(
	cfg *config.Configuration,
	logger *zap.Logger,
	metricsCollector *metrics.MetricsCollector,
	documentService *services.DocumentService,
	storageService *services.StorageService,
	docusignService *services.DocuSignService,
	notifier services.Notifier,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	reqMiddleware := middleware.NewRequestMiddleware(logger)
	engine.Use(reqMiddleware.ProcessRequest())
	engine.Use(reqMiddleware.RecoverPanic())

	docHandler := handlers.NewDocumentHandler(
		documentService,
		storageService,
		docusignService,
		notifier,
		cfg.DocuSign.ConnectSecret,
		logger,
		metricsCollector,
	)

	return &Router{
		engine:        engine,
		logger:        logger,
		metrics:       metricsCollector,
		docHandler:    docHandler,
		reqMiddleware: reqMiddleware,
		storage:       storageService,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "server running")
	})

	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "up", "name": "esign"})
	})

	r.engine.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"counters":  r.metrics.GetCounters(),
			"latencies": r.metrics.GetLatencies(),
			"sizes":     r.metrics.GetSizes(),
		})
	})

	r.engine.Static("/uploads", r.storage.UploadsDir())
	r.engine.Static("/signed", r.storage.SignedDir())

	documents := r.engine.Group("/api/documents")
	{
		documents.POST("/upload", r.docHandler.UploadDocument)
		documents.POST("/send", r.docHandler.SendDocuments)
		documents.POST("/docusign/callback", r.docHandler.DocuSignCallback)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

func (r *Router) Run(addr string) error {
	r.logger.Info("Starting HTTP server", zap.String("address", addr))
	return r.engine.Run(addr)
}
