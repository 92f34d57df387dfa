package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modguard-io/modguard/internal/domain/service"
	"github.com/modguard-io/modguard/internal/registry"
	"github.com/modguard-io/modguard/internal/usecase"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	StatusCode int
	Code       string
	Message    string
}

// MapUsecaseError maps usecase and registry errors to HTTP error responses.
// It provides consistent error handling across all handlers.
func MapUsecaseError(err error) ErrorResponse {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, usecase.ErrBatchTooLarge):
		return ErrorResponse{
			StatusCode: http.StatusUnprocessableEntity,
			Code:       "INVALID_INPUT",
			Message:    err.Error(),
		}
	case errors.Is(err, registry.ErrUnknownModel):
		return ErrorResponse{
			StatusCode: http.StatusNotFound,
			Code:       "MODEL_NOT_FOUND",
			Message:    err.Error(),
		}
	case errors.Is(err, registry.ErrNoModelLoaded):
		return ErrorResponse{
			StatusCode: http.StatusServiceUnavailable,
			Code:       "MODEL_NOT_LOADED",
			Message:    "no model loaded",
		}
	case errors.Is(err, usecase.ErrInferenceFailure):
		return ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Code:       "INFERENCE_FAILED",
			Message:    "prediction failed",
		}
	default:
		return ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Code:       "INTERNAL_ERROR",
			Message:    "internal server error",
		}
	}
}

// HandleUsecaseError handles a usecase error by sending an appropriate HTTP
// response. It maps the error to an HTTP status and sends a JSON error
// response.
func HandleUsecaseError(c *gin.Context, err error) {
	errResp := MapUsecaseError(err)
	respondError(c, errResp.StatusCode, errResp.Code, errResp.Message)
}

// HandleInvalidRequest handles a malformed request body.
func HandleInvalidRequest(c *gin.Context, message string) {
	respondError(c, http.StatusUnprocessableEntity, "INVALID_INPUT", message)
}
