// Package linear implements the Predictor contract for the classical
// baselines: a fitted TF-IDF vectorizer feeding a linear decision function
// (logistic regression or linear SVM), loaded from a JSON artifact exported
// by the training pipeline.
package linear

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/modguard-io/modguard/internal/domain/entity"
	"github.com/modguard-io/modguard/internal/domain/service"
	"github.com/modguard-io/modguard/internal/mathutil"
)

// Classifier head types accepted in artifacts.
const (
	ClassifierLogistic = "logistic"
	ClassifierSVM      = "svm"
)

// Calibration holds Platt scaling parameters: p = sigmoid(a*margin + b).
type Calibration struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// ClassifierConfig is the serialized linear head.
type ClassifierConfig struct {
	Type        string       `json:"type"`
	Coef        [][]float64  `json:"coef"`
	Intercept   []float64    `json:"intercept"`
	Calibration *Calibration `json:"calibration,omitempty"`
}

// Artifact is the on-disk JSON layout for one baseline model.
type Artifact struct {
	SchemaVersion int               `json:"schema_version"`
	Labels        []string          `json:"labels"`
	Vectorizer    *VectorizerConfig `json:"vectorizer"`
	Classifier    *ClassifierConfig `json:"classifier"`
}

// Adapter wraps one baseline artifact behind the Predictor interface.
// All fields are read-only after Load, so concurrent Predict calls are safe.
type Adapter struct {
	vectorizer  *Vectorizer
	coef        *mat.Dense // rows x features
	intercept   []float64
	labels      []string
	kind        string
	calibration *Calibration
}

// Load reads and validates a baseline artifact. All structural problems are
// reported here; Predict never re-checks the artifact.
func Load(path string) (*Adapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", service.ErrModelLoad, path, err)
	}

	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", service.ErrModelLoad, path, err)
	}

	adapter, err := New(&art)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", service.ErrModelLoad, path, err)
	}
	return adapter, nil
}

// New builds an Adapter from a parsed artifact.
func New(art *Artifact) (*Adapter, error) {
	if len(art.Labels) < 2 {
		return nil, fmt.Errorf("artifact needs at least 2 labels, got %d", len(art.Labels))
	}
	if art.Vectorizer == nil || art.Classifier == nil {
		return nil, fmt.Errorf("artifact is missing vectorizer or classifier section")
	}

	kind := strings.ToLower(art.Classifier.Type)
	if kind != ClassifierLogistic && kind != ClassifierSVM {
		return nil, fmt.Errorf("unknown classifier type %q", art.Classifier.Type)
	}

	vec, err := NewVectorizer(art.Vectorizer)
	if err != nil {
		return nil, err
	}

	rows := len(art.Classifier.Coef)
	if rows == 0 {
		return nil, fmt.Errorf("classifier has no coefficient rows")
	}
	// Binary models store a single row; multiclass stores one row per label.
	if rows == 1 && len(art.Labels) != 2 {
		return nil, fmt.Errorf("single-row classifier requires exactly 2 labels, got %d", len(art.Labels))
	}
	if rows != 1 && rows != len(art.Labels) {
		return nil, fmt.Errorf("coefficient rows %d do not match %d labels", rows, len(art.Labels))
	}
	if len(art.Classifier.Intercept) != rows {
		return nil, fmt.Errorf("intercept size %d does not match %d coefficient rows", len(art.Classifier.Intercept), rows)
	}

	features := vec.NumFeatures()
	flat := make([]float64, 0, rows*features)
	for i, row := range art.Classifier.Coef {
		if len(row) != features {
			return nil, fmt.Errorf("coefficient row %d has %d features, vectorizer has %d", i, len(row), features)
		}
		flat = append(flat, row...)
	}

	return &Adapter{
		vectorizer:  vec,
		coef:        mat.NewDense(rows, features, flat),
		intercept:   art.Classifier.Intercept,
		labels:      art.Labels,
		kind:        kind,
		calibration: art.Classifier.Calibration,
	}, nil
}

// Kind implements service.Predictor.
func (a *Adapter) Kind() entity.ModelKind {
	return entity.ModelKindLinear
}

// Labels implements service.Predictor.
func (a *Adapter) Labels() []string {
	out := make([]string, len(a.labels))
	copy(out, a.labels)
	return out
}

// Predict implements service.Predictor. The timing covers vectorization and
// the decision function only.
func (a *Adapter) Predict(ctx context.Context, text string) (*entity.PredictionResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", service.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	features := a.vectorizer.Transform(text)
	margins := a.decisionFunction(features)
	probs := a.probabilities(margins)
	elapsed := time.Since(start)

	best := mathutil.ArgMax(probs)

	scores := make([]entity.ClassScore, len(a.labels))
	for i, label := range a.labels {
		scores[i] = entity.ClassScore{Label: label, Score: probs[i]}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })

	return &entity.PredictionResult{
		PredictedLabel:  a.labels[best],
		Confidence:      probs[best],
		Scores:          scores,
		InferenceTimeMs: float64(elapsed) / float64(time.Millisecond),
	}, nil
}

// decisionFunction computes W*x + b over the sparse feature vector.
func (a *Adapter) decisionFunction(features map[int]float64) []float64 {
	rows, _ := a.coef.Dims()
	margins := make([]float64, rows)
	for r := 0; r < rows; r++ {
		z := a.intercept[r]
		for idx, val := range features {
			z += a.coef.At(r, idx) * val
		}
		margins[r] = z
	}
	return margins
}

// probabilities converts decision margins into per-class scores that sum
// to 1. Binary models use the sigmoid (Platt-calibrated for SVM margins);
// multiclass models use a softmax over the margins.
func (a *Adapter) probabilities(margins []float64) []float64 {
	if len(margins) == 1 {
		z := margins[0]
		if a.kind == ClassifierSVM && a.calibration != nil {
			z = a.calibration.A*z + a.calibration.B
		}
		p := mathutil.Sigmoid(z)
		// The single margin scores the second label, sklearn-style.
		return []float64{1 - p, p}
	}
	return mathutil.Softmax(margins)
}
