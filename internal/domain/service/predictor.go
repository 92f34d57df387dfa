package service

import (
	"context"

	"github.com/modguard-io/modguard/internal/domain/entity"
)

// Predictor is the uniform contract over one loaded classifier artifact.
// Implementations must be safe for concurrent use: all weights are loaded
// at construction time and treated as read-only afterwards.
type Predictor interface {
	// Predict classifies a single text. The returned result carries scores
	// for every class, sorted by descending score.
	Predict(ctx context.Context, text string) (*entity.PredictionResult, error)

	// Kind reports the model family backing this predictor.
	Kind() entity.ModelKind

	// Labels returns the class labels in their training order.
	Labels() []string
}
