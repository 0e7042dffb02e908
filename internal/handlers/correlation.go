package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/services"
)

type CorrelationHandler struct {
	log        *logger.Logger
	resultsSvc services.ResultsService
}

func NewCorrelationHandler(log *logger.Logger, resultsSvc services.ResultsService) *CorrelationHandler {
	return &CorrelationHandler{
		log:        log.With("handler", "CorrelationHandler"),
		resultsSvc: resultsSvc,
	}
}

// GET /api/correlations/top?target=&metric=&max_p=&limit=
// Strongest feature-target associations, ordered by |correlation|.
func (h *CorrelationHandler) GetTop(c *gin.Context) {
	target := c.Query("target")
	if target == "" {
		RespondError(c, http.StatusBadRequest, "missing_target", errors.New("query parameter 'target' is required"))
		return
	}
	metric := c.Query("metric")

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 500 {
			RespondError(c, http.StatusBadRequest, "invalid_limit", errors.New("limit must be an integer in [1,500]"))
			return
		}
		limit = v
	}

	maxP := 0.0
	if raw := c.Query("max_p"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || v > 1 {
			RespondError(c, http.StatusBadRequest, "invalid_max_p", errors.New("max_p must be in (0,1]"))
			return
		}
		maxP = v
	}

	rows, err := h.resultsSvc.TopCorrelations(c.Request.Context(), target, metric, maxP, limit)
	if err != nil {
		h.log.Error("top correlations query failed", "target", target, "error", err)
		RespondError(c, http.StatusInternalServerError, "query_failed", err)
		return
	}
	RespondOK(c, gin.H{"target": target, "results": rows})
}
