package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modguard-io/modguard/internal/domain/entity"
)

// stubPredictor is a minimal Predictor for registry tests.
type stubPredictor struct {
	name string
}

func (s *stubPredictor) Predict(ctx context.Context, text string) (*entity.PredictionResult, error) {
	return &entity.PredictionResult{
		PredictedLabel: "non_hate",
		Confidence:     1,
		Scores:         []entity.ClassScore{{Label: "non_hate", Score: 1}, {Label: "hate", Score: 0}},
	}, nil
}

func (s *stubPredictor) Kind() entity.ModelKind { return entity.ModelKindLinear }
func (s *stubPredictor) Labels() []string       { return []string{"non_hate", "hate"} }

func newTestRegistry(t *testing.T, names ...string) *Registry {
	t.Helper()
	reg := New()
	for _, name := range names {
		require.NoError(t, reg.Register(name, entity.ModelKindLinear, &stubPredictor{name: name}))
	}
	return reg
}

func TestRegister(t *testing.T) {
	t.Run("first registered model becomes active", func(t *testing.T) {
		reg := newTestRegistry(t, "logistic_regression", "linear_svm")

		active, err := reg.Active()
		require.NoError(t, err)
		assert.Equal(t, "logistic_regression", active.Name)
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		reg := newTestRegistry(t, "distilbert")

		err := reg.Register("distilbert", entity.ModelKindTransformer, &stubPredictor{})
		assert.ErrorIs(t, err, ErrDuplicateName)
		assert.Equal(t, 1, reg.Len())
	})
}

func TestActive(t *testing.T) {
	t.Run("fails when nothing is registered", func(t *testing.T) {
		_, err := New().Active()
		assert.ErrorIs(t, err, ErrNoModelLoaded)
	})
}

func TestSetActive(t *testing.T) {
	t.Run("switches to a registered model", func(t *testing.T) {
		reg := newTestRegistry(t, "logistic_regression", "linear_svm")

		require.NoError(t, reg.SetActive("linear_svm"))

		active, err := reg.Active()
		require.NoError(t, err)
		assert.Equal(t, "linear_svm", active.Name)
	})

	t.Run("unknown name leaves active untouched", func(t *testing.T) {
		reg := newTestRegistry(t, "logistic_regression", "linear_svm")
		require.NoError(t, reg.SetActive("linear_svm"))

		err := reg.SetActive("nonexistent_model")
		assert.ErrorIs(t, err, ErrUnknownModel)

		active, actErr := reg.Active()
		require.NoError(t, actErr)
		assert.Equal(t, "linear_svm", active.Name)
	})
}

func TestNames(t *testing.T) {
	t.Run("returns registration order and stays stable", func(t *testing.T) {
		reg := newTestRegistry(t, "b_model", "a_model", "c_model")

		first := reg.Names()
		second := reg.Names()
		assert.Equal(t, []string{"b_model", "a_model", "c_model"}, first)
		assert.Equal(t, first, second)
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		reg := newTestRegistry(t, "a_model", "b_model")

		names := reg.Names()
		names[0] = "mutated"
		assert.Equal(t, []string{"a_model", "b_model"}, reg.Names())
	})
}

func TestDescriptorInfo(t *testing.T) {
	reg := newTestRegistry(t, "logistic_regression")

	d, err := reg.Get("logistic_regression")
	require.NoError(t, err)

	info := d.Info()
	assert.Equal(t, "logistic_regression", info.Name)
	assert.Equal(t, entity.ModelKindLinear, info.Kind)
	assert.Equal(t, 2, info.NumClasses)
}

func TestConcurrentSwitchAndRead(t *testing.T) {
	reg := newTestRegistry(t, "model_a", "model_b")
	registered := map[string]bool{"model_a": true, "model_b": true}

	var wg sync.WaitGroup
	observed := make(chan string, 200)

	// Flip the active model while many readers resolve it; every observed
	// name must be a registered one, never a torn value.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if i%2 == 0 {
				_ = reg.SetActive("model_b")
			} else {
				_ = reg.SetActive("model_a")
			}
		}
	}()

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			active, err := reg.Active()
			if err == nil {
				observed <- active.Name
			}
		}()
	}

	wg.Wait()
	close(observed)

	count := 0
	for name := range observed {
		assert.True(t, registered[name], "observed unregistered model %q", name)
		count++
	}
	assert.Equal(t, 100, count)
}
