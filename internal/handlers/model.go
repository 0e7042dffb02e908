package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/services"
)

type ModelHandler struct {
	log            *logger.Logger
	resultsSvc     services.ResultsService
	defaultVersion string
}

func NewModelHandler(log *logger.Logger, resultsSvc services.ResultsService, defaultVersion string) *ModelHandler {
	return &ModelHandler{
		log:            log.With("handler", "ModelHandler"),
		resultsSvc:     resultsSvc,
		defaultVersion: defaultVersion,
	}
}

func (h *ModelHandler) version(c *gin.Context) string {
	if v := c.Query("version"); v != "" {
		return v
	}
	return h.defaultVersion
}

// GET /api/models/summary?version=
// Per-model metrics for a training run, grouped by target.
func (h *ModelHandler) GetSummary(c *gin.Context) {
	version := h.version(c)
	entries, err := h.resultsSvc.ModelSummary(c.Request.Context(), version)
	if err != nil {
		if errors.Is(err, services.ErrNoResults) {
			RespondError(c, http.StatusNotFound, "no_results", err)
			return
		}
		h.log.Error("model summary query failed", "version", version, "error", err)
		RespondError(c, http.StatusInternalServerError, "query_failed", err)
		return
	}
	RespondOK(c, gin.H{"version": version, "models": entries})
}

// GET /api/models/:target/:model/feature-importances?version=
func (h *ModelHandler) GetFeatureImportances(c *gin.Context) {
	target := c.Param("target")
	modelType := c.Param("model")
	version := h.version(c)

	importances, err := h.resultsSvc.FeatureImportances(c.Request.Context(), target, modelType, version)
	if err != nil {
		if errors.Is(err, services.ErrNoResults) {
			RespondError(c, http.StatusNotFound, "no_results", err)
			return
		}
		h.log.Error("feature importances query failed",
			"target", target, "model", modelType, "error", err)
		RespondError(c, http.StatusInternalServerError, "query_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"target":              target,
		"model":               modelType,
		"version":             version,
		"feature_importances": importances,
	})
}
