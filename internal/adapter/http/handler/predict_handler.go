package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modguard-io/modguard/internal/usecase"
)

// PredictHandler handles prediction endpoints
type PredictHandler struct {
	predictUC usecase.PredictUsecase
}

// NewPredictHandler creates a new prediction handler
func NewPredictHandler(predictUC usecase.PredictUsecase) *PredictHandler {
	return &PredictHandler{predictUC: predictUC}
}

// Predict handles POST /predict
func (h *PredictHandler) Predict(c *gin.Context) {
	var input usecase.PredictInput
	if err := c.ShouldBindJSON(&input); err != nil {
		HandleInvalidRequest(c, "body must be JSON with a non-empty \"text\" field")
		return
	}

	result, err := h.predictUC.Predict(c.Request.Context(), input.Text)
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, result)
}

// PredictBatch handles POST /predict/batch
func (h *PredictHandler) PredictBatch(c *gin.Context) {
	var input usecase.PredictBatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		HandleInvalidRequest(c, "body must be JSON with a non-empty \"texts\" array")
		return
	}

	results, err := h.predictUC.PredictBatch(c.Request.Context(), input.Texts)
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"results": results, "count": len(results)})
}
