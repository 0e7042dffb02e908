package app

import (
	"github.com/OnChainFest/HRkey-App/internal/handlers"
	"github.com/OnChainFest/HRkey-App/internal/logger"
)

type Handlers struct {
	Correlation *handlers.CorrelationHandler
	Model       *handlers.ModelHandler
}

func wireHandlers(log *logger.Logger, cfg Config, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Correlation: handlers.NewCorrelationHandler(log, serviceset.Results),
		Model:       handlers.NewModelHandler(log, serviceset.Results, cfg.AnalysisVersion),
	}
}
