package app

import (
	"github.com/gin-gonic/gin"

	"github.com/OnChainFest/HRkey-App/internal/server"
)

func wireRouter(cfg Config, handlerset Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		CorrelationHandler: handlerset.Correlation,
		ModelHandler:       handlerset.Model,
		AllowOrigins:       cfg.AllowOrigins,
	})
}
