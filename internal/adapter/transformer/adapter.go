// Package transformer implements the Predictor contract for the distilled
// transformer classifier. Artifacts are a directory holding config.json,
// vocab.txt and model.safetensors as exported by the training pipeline; the
// forward pass runs in-process on gonum matrices.
package transformer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/modguard-io/modguard/internal/domain/entity"
	"github.com/modguard-io/modguard/internal/domain/service"
	"github.com/modguard-io/modguard/internal/mathutil"
)

// Config is the config.json of an exported transformer artifact.
type Config struct {
	Dim                   int      `json:"dim"`
	HiddenDim             int      `json:"hidden_dim"`
	NumLayers             int      `json:"n_layers"`
	NumHeads              int      `json:"n_heads"`
	MaxPositionEmbeddings int      `json:"max_position_embeddings"`
	MaxLen                int      `json:"max_len"`
	Labels                []string `json:"labels"`
}

// Adapter wraps one transformer artifact behind the Predictor interface.
// Weights and vocabulary are read-only after Load, so concurrent Predict
// calls are safe.
type Adapter struct {
	tokenizer *Tokenizer
	enc       *encoder
	labels    []string
	maxLen    int
}

// Load reads the artifact directory and binds every expected tensor. Any
// missing or misshapen weight fails here, never at predict time.
func Load(dir string) (*Adapter, error) {
	cfgData, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", service.ErrModelLoad, dir, err)
	}
	var cfg Config
	if err := json.Unmarshal(cfgData, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: config.json: %v", service.ErrModelLoad, dir, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", service.ErrModelLoad, dir, err)
	}

	tok, err := NewTokenizer(filepath.Join(dir, "vocab.txt"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", service.ErrModelLoad, dir, err)
	}

	tensors, err := readSafetensors(filepath.Join(dir, "model.safetensors"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", service.ErrModelLoad, dir, err)
	}

	enc, err := bindEncoder(&cfg, tensors, tok.VocabSize())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", service.ErrModelLoad, dir, err)
	}

	maxLen := cfg.MaxLen
	if maxLen <= 0 || maxLen > cfg.MaxPositionEmbeddings {
		maxLen = cfg.MaxPositionEmbeddings
	}

	return &Adapter{
		tokenizer: tok,
		enc:       enc,
		labels:    cfg.Labels,
		maxLen:    maxLen,
	}, nil
}

func (c *Config) validate() error {
	switch {
	case c.Dim <= 0 || c.HiddenDim <= 0 || c.NumLayers <= 0 || c.MaxPositionEmbeddings <= 0:
		return fmt.Errorf("config has non-positive dimensions")
	case c.NumHeads <= 0 || c.Dim%c.NumHeads != 0:
		return fmt.Errorf("dim %d is not divisible by n_heads %d", c.Dim, c.NumHeads)
	case len(c.Labels) < 2:
		return fmt.Errorf("config needs at least 2 labels, got %d", len(c.Labels))
	}
	return nil
}

// Kind implements service.Predictor.
func (a *Adapter) Kind() entity.ModelKind {
	return entity.ModelKindTransformer
}

// Labels implements service.Predictor.
func (a *Adapter) Labels() []string {
	out := make([]string, len(a.labels))
	copy(out, a.labels)
	return out
}

// Predict implements service.Predictor. The timing covers tokenization, the
// forward pass and the softmax only.
func (a *Adapter) Predict(ctx context.Context, text string) (*entity.PredictionResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", service.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	ids := a.tokenizer.Encode(text, a.maxLen)
	logits, err := a.enc.forward(ids)
	if err != nil {
		return nil, fmt.Errorf("forward pass: %w", err)
	}
	probs := mathutil.Softmax(logits)
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

// bindEncoder wires named tensors into the encoder, checking every shape
// against the config.
func bindEncoder(cfg *Config, tensors map[string]*Tensor, vocabSize int) (*encoder, error) {
	b := &binder{tensors: tensors}

	enc := &encoder{
		wordEmbeddings:     b.matrix("distilbert.embeddings.word_embeddings.weight", vocabSize, cfg.Dim),
		positionEmbeddings: b.matrix("distilbert.embeddings.position_embeddings.weight", cfg.MaxPositionEmbeddings, cfg.Dim),
		embeddingNorm:      b.norm("distilbert.embeddings.LayerNorm", cfg.Dim),
		preClassifier:      b.linear("pre_classifier", cfg.Dim, cfg.Dim),
		classifier:         b.linear("classifier", len(cfg.Labels), cfg.Dim),
		dim:                cfg.Dim,
		numHeads:           cfg.NumHeads,
	}

	enc.layers = make([]encoderLayer, cfg.NumLayers)
	for i := 0; i < cfg.NumLayers; i++ {
		prefix := fmt.Sprintf("distilbert.transformer.layer.%d", i)
		enc.layers[i] = encoderLayer{
			qLin:       b.linear(prefix+".attention.q_lin", cfg.Dim, cfg.Dim),
			kLin:       b.linear(prefix+".attention.k_lin", cfg.Dim, cfg.Dim),
			vLin:       b.linear(prefix+".attention.v_lin", cfg.Dim, cfg.Dim),
			outLin:     b.linear(prefix+".attention.out_lin", cfg.Dim, cfg.Dim),
			saNorm:     b.norm(prefix+".sa_layer_norm", cfg.Dim),
			ffnLin1:    b.linear(prefix+".ffn.lin1", cfg.HiddenDim, cfg.Dim),
			ffnLin2:    b.linear(prefix+".ffn.lin2", cfg.Dim, cfg.HiddenDim),
			outputNorm: b.norm(prefix+".output_layer_norm", cfg.Dim),
		}
	}

	if b.err != nil {
		return nil, b.err
	}
	return enc, nil
}

// binder accumulates the first binding error so call sites stay flat.
type binder struct {
	tensors map[string]*Tensor
	err     error
}

func (b *binder) get(name string, rows, cols int) *Tensor {
	if b.err != nil {
		return nil
	}
	t, ok := b.tensors[name]
	if !ok {
		b.err = fmt.Errorf("missing tensor %s", name)
		return nil
	}
	if t.Rows() != rows || t.Cols() != cols {
		b.err = fmt.Errorf("tensor %s has shape %v, want [%d %d]", name, t.Shape, rows, cols)
		return nil
	}
	return t
}

func (b *binder) matrix(name string, rows, cols int) *mat.Dense {
	t := b.get(name, rows, cols)
	if t == nil {
		return nil
	}
	return mat.NewDense(rows, cols, t.Data)
}

func (b *binder) vector(name string, size int) []float64 {
	t := b.get(name, 1, size)
	if t == nil {
		return nil
	}
	return t.Data
}

func (b *binder) linear(prefix string, out, in int) linearLayer {
	return linearLayer{
		weight: b.matrix(prefix+".weight", out, in),
		bias:   b.vector(prefix+".bias", out),
	}
}

func (b *binder) norm(prefix string, size int) layerNorm {
	return layerNorm{
		gamma: b.vector(prefix+".weight", size),
		beta:  b.vector(prefix+".bias", size),
	}
}
