package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modguard-io/modguard/internal/domain/entity"
	"github.com/modguard-io/modguard/internal/domain/service"
	"github.com/modguard-io/modguard/internal/infrastructure/metrics"
	"github.com/modguard-io/modguard/internal/registry"
)

// Error definitions for prediction usecases
var (
	// ErrInferenceFailure marks an unexpected failure inside a model's
	// compute path. Registry state is never affected; the request is
	// reported once and not retried.
	ErrInferenceFailure = errors.New("inference failed")

	// ErrBatchTooLarge marks a batch request above the configured cap.
	ErrBatchTooLarge = errors.New("batch too large")
)

// PredictInput represents the input for a single prediction.
type PredictInput struct {
	Text string `json:"text" binding:"required"`
}

// PredictBatchInput represents the input for a batch prediction.
type PredictBatchInput struct {
	Texts []string `json:"texts" binding:"required"`
}

// PredictUsecase dispatches prediction requests to the active model.
type PredictUsecase interface {
	Predict(ctx context.Context, text string) (*entity.PredictionResult, error)
	PredictBatch(ctx context.Context, texts []string) ([]*entity.PredictionResult, error)
}

type predictUsecase struct {
	registry     *registry.Registry
	metrics      *metrics.Metrics
	maxTextChars int
	maxBatchSize int
}

// NewPredictUsecase creates the prediction dispatcher. maxTextChars and
// maxBatchSize guard request size; non-positive values select the defaults
// (10000 characters, 32 texts).
func NewPredictUsecase(reg *registry.Registry, m *metrics.Metrics, maxTextChars, maxBatchSize int) PredictUsecase {
	if maxTextChars <= 0 {
		maxTextChars = 10000
	}
	if maxBatchSize <= 0 {
		maxBatchSize = 32
	}
	return &predictUsecase{
		registry:     reg,
		metrics:      m,
		maxTextChars: maxTextChars,
		maxBatchSize: maxBatchSize,
	}
}

// Predict validates the text, delegates to the active adapter and stamps the
// serving model onto the result. Validation happens before the registry is
// consulted so bad input never reaches an adapter.
func (u *predictUsecase) Predict(ctx context.Context, text string) (*entity.PredictionResult, error) {
	if err := u.validate(text); err != nil {
		u.metrics.RecordPredictionError("invalid_input")
		return nil, err
	}

	active, err := u.registry.Active()
	if err != nil {
		u.metrics.RecordPredictionError("no_model")
		return nil, err
	}

	result, err := active.Predictor.Predict(ctx, text)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			u.metrics.RecordPredictionError("invalid_input")
			return nil, err
		}
		u.metrics.RecordPredictionError("inference")
		return nil, fmt.Errorf("%w: model %s: %v", ErrInferenceFailure, active.Name, err)
	}

	// Assemble a fresh envelope. Adapters may hand out shared result
	// objects, so the model stamp must never write through their pointer.
	out := *result
	out.ModelUsed = active.Name
	u.metrics.RecordPrediction(active.Name, out.PredictedLabel, out.InferenceTimeMs)
	return &out, nil
}

// PredictBatch validates the batch shape, then dispatches each text through
// Predict. One request maps to one adapter invocation per text; there is no
// batching inside the adapters.
func (u *predictUsecase) PredictBatch(ctx context.Context, texts []string) ([]*entity.PredictionResult, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts is empty", service.ErrInvalidInput)
	}
	if len(texts) > u.maxBatchSize {
		return nil, fmt.Errorf("%w: %d texts exceed the limit of %d", ErrBatchTooLarge, len(texts), u.maxBatchSize)
	}

	results := make([]*entity.PredictionResult, len(texts))
	for i, text := range texts {
		result, err := u.Predict(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		results[i] = result
	}
	return results, nil
}

func (u *predictUsecase) validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text is empty or whitespace", service.ErrInvalidInput)
	}
	if len(text) > u.maxTextChars {
		return fmt.Errorf("%w: text exceeds %d characters", service.ErrInvalidInput, u.maxTextChars)
	}
	return nil
}
