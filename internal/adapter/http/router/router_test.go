package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/modguard-io/modguard/internal/adapter/http/handler"
	"github.com/modguard-io/modguard/internal/adapter/linear"
	"github.com/modguard-io/modguard/internal/domain/entity"
	"github.com/modguard-io/modguard/internal/infrastructure/config"
	"github.com/modguard-io/modguard/internal/registry"
)

const testArtifact = `{
  "schema_version": 1,
  "labels": ["non_hate", "hate"],
  "vectorizer": {
    "vocabulary": {"love": 0, "stupid": 1},
    "idf": [1.0, 1.0],
    "ngram_min": 1,
    "ngram_max": 1,
    "lowercase": true,
    "sublinear_tf": true,
    "norm": "l2"
  },
  "classifier": {
    "type": "logistic",
    "coef": [[-1.5, 2.0]],
    "intercept": [0.0]
  }
}`

// setupService wires the full stack against two real linear models, the way
// main does it, minus the listener.
func setupService(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(testArtifact), 0o644))

	reg := registry.New()
	for _, name := range []string{"logistic_regression", "linear_svm"} {
		adapter, err := linear.Load(path)
		require.NoError(t, err)
		require.NoError(t, reg.Register(name, entity.ModelKindLinear, adapter))
	}

	cfg := &config.Config{
		Inference: config.InferenceConfig{MaxTextChars: 10000, MaxBatchSize: 32},
	}
	return Setup(reg, cfg, nil, zap.NewNop())
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body == "" {
		reader = bytes.NewBuffer(nil)
	} else {
		reader = bytes.NewBufferString(body)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestService_PredictFlow(t *testing.T) {
	router := setupService(t)

	w := doJSON(router, "POST", "/predict", `{"text": "I love it"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var response handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)

	data := response.Data.(map[string]interface{})
	assert.Equal(t, "non_hate", data["predicted_label"])
	assert.Equal(t, "logistic_regression", data["model_used"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestService_SwitchThenPredict(t *testing.T) {
	router := setupService(t)

	w := doJSON(router, "POST", "/models/switch", `{"model_name": "linear_svm"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, "POST", "/predict", `{"text": "so stupid"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var response handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response.Data.(map[string]interface{})
	assert.Equal(t, "linear_svm", data["model_used"])
}

func TestService_SwitchUnknownModelKeepsActive(t *testing.T) {
	router := setupService(t)

	w := doJSON(router, "POST", "/models/switch", `{"model_name": "bert_large"}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, "POST", "/predict", `{"text": "still serving"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var response handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response.Data.(map[string]interface{})
	assert.Equal(t, "logistic_regression", data["model_used"])
}

func TestService_ListModels(t *testing.T) {
	router := setupService(t)

	w := doJSON(router, "GET", "/models", "")
	require.Equal(t, http.StatusOK, w.Code)

	var response handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response.Data.(map[string]interface{})
	assert.Equal(t, "logistic_regression", data["current_model"])
	assert.Len(t, data["available_models"], 2)
}

func TestService_HealthAndReady(t *testing.T) {
	router := setupService(t)

	w := doJSON(router, "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["num_classes"])

	w = doJSON(router, "GET", "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestService_Metrics(t *testing.T) {
	router := setupService(t)

	w := doJSON(router, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestService_InvalidInput(t *testing.T) {
	router := setupService(t)

	w := doJSON(router, "POST", "/predict", `{"text": "   "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var response handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(t, response.Success)
	assert.Equal(t, "INVALID_INPUT", response.Error.Code)
}
