package linear

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modguard-io/modguard/internal/domain/entity"
	"github.com/modguard-io/modguard/internal/domain/service"
)

// testArtifact builds a tiny binary hate/non-hate logistic model: positive
// weights push toward "hate".
func testArtifact() *Artifact {
	return &Artifact{
		SchemaVersion: 1,
		Labels:        []string{"non_hate", "hate"},
		Vectorizer: &VectorizerConfig{
			Vocabulary: map[string]int{
				"love":    0,
				"this":    1,
				"product": 2,
				"idiot":   3,
				"stupid":  4,
			},
			IDF:         []float64{1, 1, 1, 1, 1},
			NgramMin:    1,
			NgramMax:    1,
			Lowercase:   true,
			SublinearTF: true,
			Norm:        "l2",
		},
		Classifier: &ClassifierConfig{
			Type:      ClassifierLogistic,
			Coef:      [][]float64{{-2.0, -0.2, -1.0, 3.0, 2.5}},
			Intercept: []float64{-0.5},
		},
	}
}

func TestNew(t *testing.T) {
	t.Run("builds from valid artifact", func(t *testing.T) {
		a, err := New(testArtifact())

		assert.NoError(t, err)
		assert.Equal(t, entity.ModelKindLinear, a.Kind())
		assert.Equal(t, []string{"non_hate", "hate"}, a.Labels())
	})

	t.Run("rejects unknown classifier type", func(t *testing.T) {
		art := testArtifact()
		art.Classifier.Type = "random_forest"

		_, err := New(art)
		assert.Error(t, err)
	})

	t.Run("rejects coefficient row narrower than vocabulary", func(t *testing.T) {
		art := testArtifact()
		art.Classifier.Coef = [][]float64{{1.0, 2.0}}

		_, err := New(art)
		assert.Error(t, err)
	})

	t.Run("rejects single row with more than two labels", func(t *testing.T) {
		art := testArtifact()
		art.Labels = []string{"a", "b", "c"}

		_, err := New(art)
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads artifact from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model.json")
		data, err := json.Marshal(testArtifact())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		a, err := Load(path)
		assert.NoError(t, err)
		assert.NotNil(t, a)
	})

	t.Run("missing file fails with model load error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.ErrorIs(t, err, service.ErrModelLoad)
	})

	t.Run("corrupt file fails with model load error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		_, err := Load(path)
		assert.ErrorIs(t, err, service.ErrModelLoad)
	})
}

func TestPredict(t *testing.T) {
	a, err := New(testArtifact())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("classifies clearly positive text as non-hate", func(t *testing.T) {
		result, err := a.Predict(ctx, "I love this product!")

		require.NoError(t, err)
		assert.Equal(t, "non_hate", result.PredictedLabel)
		assert.Greater(t, result.Confidence, 0.5)
		assert.LessOrEqual(t, result.Confidence, 1.0)
	})

	t.Run("classifies insults as hate", func(t *testing.T) {
		result, err := a.Predict(ctx, "you are a stupid idiot")

		require.NoError(t, err)
		assert.Equal(t, "hate", result.PredictedLabel)
		assert.Greater(t, result.Confidence, 0.5)
	})

	t.Run("scores sum to one and confidence matches top score", func(t *testing.T) {
		result, err := a.Predict(ctx, "love this idiot")
		require.NoError(t, err)

		var sum float64
		for _, s := range result.Scores {
			sum += s.Score
		}
		assert.InDelta(t, 1.0, sum, 1e-4)
		assert.Equal(t, result.Confidence, result.TopScore())
		assert.GreaterOrEqual(t, result.InferenceTimeMs, 0.0)
	})

	t.Run("scores are sorted descending", func(t *testing.T) {
		result, err := a.Predict(ctx, "stupid product")
		require.NoError(t, err)

		for i := 1; i < len(result.Scores); i++ {
			assert.GreaterOrEqual(t, result.Scores[i-1].Score, result.Scores[i].Score)
		}
	})

	t.Run("is deterministic for identical input", func(t *testing.T) {
		first, err := a.Predict(ctx, "love this product")
		require.NoError(t, err)
		second, err := a.Predict(ctx, "love this product")
		require.NoError(t, err)

		assert.Equal(t, first.PredictedLabel, second.PredictedLabel)
		assert.Equal(t, first.Confidence, second.Confidence)
		assert.Equal(t, first.Scores, second.Scores)
	})

	t.Run("rejects empty and whitespace text", func(t *testing.T) {
		_, err := a.Predict(ctx, "")
		assert.ErrorIs(t, err, service.ErrInvalidInput)

		_, err = a.Predict(ctx, "   \t\n")
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("text with no known terms still produces valid scores", func(t *testing.T) {
		result, err := a.Predict(ctx, "zzz qqq")
		require.NoError(t, err)

		var sum float64
		for _, s := range result.Scores {
			sum += s.Score
		}
		assert.InDelta(t, 1.0, sum, 1e-4)
	})
}

func TestPredictMulticlassTieBreak(t *testing.T) {
	art := testArtifact()
	art.Labels = []string{"neutral", "offensive", "hate"}
	// Rows 0 and 1 are identical, so their scores tie exactly and the
	// lowest label index must win.
	art.Classifier.Coef = [][]float64{
		{1, 1, 1, 1, 1},
		{1, 1, 1, 1, 1},
		{-1, -1, -1, -1, -1},
	}
	art.Classifier.Intercept = []float64{0, 0, 0}

	a, err := New(art)
	require.NoError(t, err)

	result, err := a.Predict(context.Background(), "love this product")
	require.NoError(t, err)

	assert.Equal(t, "neutral", result.PredictedLabel)
	assert.InDelta(t, result.Scores[0].Score, result.Scores[1].Score, 1e-12)
}

func TestPredictSVMCalibration(t *testing.T) {
	art := testArtifact()
	art.Classifier.Type = ClassifierSVM
	art.Classifier.Calibration = &Calibration{A: -1.5, B: 0.1}

	a, err := New(art)
	require.NoError(t, err)

	result, err := a.Predict(context.Background(), "stupid idiot")
	require.NoError(t, err)

	// Negative calibration slope flips the raw margin, so the insult must
	// land on the non-hate side here; the point is that calibration is
	// applied, not the label itself.
	var sum float64
	for _, s := range result.Scores {
		sum += s.Score
	}
	assert.InDelta(t, 1.0, sum, 1e-4)
	assert.Equal(t, "non_hate", result.PredictedLabel)
}
