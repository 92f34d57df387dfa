package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modguard-io/modguard/internal/usecase"
)

// ModelHandler handles the model control surface
type ModelHandler struct {
	modelUC usecase.ModelUsecase
}

// NewModelHandler creates a new model handler
func NewModelHandler(modelUC usecase.ModelUsecase) *ModelHandler {
	return &ModelHandler{modelUC: modelUC}
}

// ListModels handles GET /models
func (h *ModelHandler) ListModels(c *gin.Context) {
	out, err := h.modelUC.List(c.Request.Context())
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, out)
}

// SwitchModel handles POST /models/switch
func (h *ModelHandler) SwitchModel(c *gin.Context) {
	var input usecase.SwitchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		HandleInvalidRequest(c, "body must be JSON with a non-empty \"model_name\" field")
		return
	}

	out, err := h.modelUC.Switch(c.Request.Context(), input.ModelName)
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, out)
}
