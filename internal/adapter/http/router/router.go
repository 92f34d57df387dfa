package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/modguard-io/modguard/internal/adapter/http/handler"
	"github.com/modguard-io/modguard/internal/adapter/http/middleware"
	"github.com/modguard-io/modguard/internal/infrastructure/config"
	"github.com/modguard-io/modguard/internal/infrastructure/metrics"
	"github.com/modguard-io/modguard/internal/registry"
	"github.com/modguard-io/modguard/internal/usecase"
)

// Setup creates and configures the Gin router
func Setup(reg *registry.Registry, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	// Initialize usecases
	predictUC := usecase.NewPredictUsecase(reg, m, cfg.Inference.MaxTextChars, cfg.Inference.MaxBatchSize)
	modelUC := usecase.NewModelUsecase(reg, m)

	// Initialize handlers
	predictHandler := handler.NewPredictHandler(predictUC)
	modelHandler := handler.NewModelHandler(modelUC)
	healthHandler := handler.NewHealthHandler(modelUC)

	// Health and service endpoints
	router.GET("/", healthHandler.Root)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Inference endpoints
	router.POST("/predict", predictHandler.Predict)
	router.POST("/predict/batch", predictHandler.PredictBatch)

	// Model control surface
	router.GET("/models", modelHandler.ListModels)
	router.POST("/models/switch", modelHandler.SwitchModel)

	return router
}
