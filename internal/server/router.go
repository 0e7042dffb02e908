package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/OnChainFest/HRkey-App/internal/handlers"
)

type RouterConfig struct {
	CorrelationHandler *handlers.CorrelationHandler
	ModelHandler       *handlers.ModelHandler
	AllowOrigins       []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/correlations/top", cfg.CorrelationHandler.GetTop)
		api.GET("/models/summary", cfg.ModelHandler.GetSummary)
		api.GET("/models/:target/:model/feature-importances", cfg.ModelHandler.GetFeatureImportances)
	}

	return router
}
