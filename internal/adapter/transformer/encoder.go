package transformer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/modguard-io/modguard/internal/mathutil"
)

// layerNormEps matches the value the encoder was trained with.
const layerNormEps = 1e-12

// linearLayer is a dense affine map y = x*W^T + b with weight stored in the
// exported [out, in] orientation.
type linearLayer struct {
	weight *mat.Dense
	bias   []float64
}

func (l *linearLayer) apply(x *mat.Dense) *mat.Dense {
	rows, _ := x.Dims()
	out, _ := l.weight.Dims()
	y := mat.NewDense(rows, out, nil)
	y.Mul(x, l.weight.T())
	for r := 0; r < rows; r++ {
		for c := 0; c < out; c++ {
			y.Set(r, c, y.At(r, c)+l.bias[c])
		}
	}
	return y
}

type layerNorm struct {
	gamma []float64
	beta  []float64
}

func (ln *layerNorm) apply(x *mat.Dense) {
	rows, cols := x.Dims()
	for r := 0; r < rows; r++ {
		row := x.RawRowView(r)
		var mean float64
		for _, v := range row {
			mean += v
		}
		mean /= float64(cols)

		var variance float64
		for _, v := range row {
			d := v - mean
			variance += d * d
		}
		variance /= float64(cols)

		inv := 1 / math.Sqrt(variance+layerNormEps)
		for c := 0; c < cols; c++ {
			row[c] = (row[c]-mean)*inv*ln.gamma[c] + ln.beta[c]
		}
	}
}

// encoderLayer is one transformer block: multi-head self-attention followed
// by a feed-forward network, each with a residual connection and post-layer
// normalization.
type encoderLayer struct {
	qLin, kLin, vLin, outLin linearLayer
	saNorm                   layerNorm
	ffnLin1, ffnLin2         linearLayer
	outputNorm               layerNorm
}

// encoder is the distilled transformer classifier: token and position
// embeddings, a stack of encoder layers, and a two-stage classification
// head over the [CLS] position.
type encoder struct {
	wordEmbeddings     *mat.Dense
	positionEmbeddings *mat.Dense
	embeddingNorm      layerNorm
	layers             []encoderLayer
	preClassifier      linearLayer
	classifier         linearLayer
	dim                int
	numHeads           int
}

// forward runs inference over a token id sequence and returns the class
// logits. The sequence must be non-empty and within the position table.
func (e *encoder) forward(ids []int) ([]float64, error) {
	seq := len(ids)
	if seq == 0 {
		return nil, fmt.Errorf("empty token sequence")
	}
	maxPos, _ := e.positionEmbeddings.Dims()
	if seq > maxPos {
		return nil, fmt.Errorf("sequence length %d exceeds position table %d", seq, maxPos)
	}
	vocab, _ := e.wordEmbeddings.Dims()

	hidden := mat.NewDense(seq, e.dim, nil)
	for i, id := range ids {
		if id < 0 || id >= vocab {
			return nil, fmt.Errorf("token id %d outside vocabulary of %d", id, vocab)
		}
		for c := 0; c < e.dim; c++ {
			hidden.Set(i, c, e.wordEmbeddings.At(id, c)+e.positionEmbeddings.At(i, c))
		}
	}
	e.embeddingNorm.apply(hidden)

	for i := range e.layers {
		hidden = e.layers[i].forward(hidden, e.numHeads)
	}

	// Classification head over the [CLS] position.
	cls := mat.NewDense(1, e.dim, append([]float64(nil), hidden.RawRowView(0)...))
	pooled := e.preClassifier.apply(cls)
	relu(pooled)
	logits := e.classifier.apply(pooled)

	return append([]float64(nil), logits.RawRowView(0)...), nil
}

func (l *encoderLayer) forward(x *mat.Dense, numHeads int) *mat.Dense {
	seq, dim := x.Dims()

	q := l.qLin.apply(x)
	k := l.kLin.apply(x)
	v := l.vLin.apply(x)

	headDim := dim / numHeads
	scale := 1 / math.Sqrt(float64(headDim))
	context := mat.NewDense(seq, dim, nil)

	for h := 0; h < numHeads; h++ {
		off := h * headDim
		qh := q.Slice(0, seq, off, off+headDim)
		kh := k.Slice(0, seq, off, off+headDim)
		vh := v.Slice(0, seq, off, off+headDim)

		scores := mat.NewDense(seq, seq, nil)
		scores.Mul(qh, kh.T())
		scores.Scale(scale, scores)
		for r := 0; r < seq; r++ {
			row := mathutil.Softmax(scores.RawRowView(r))
			copy(scores.RawRowView(r), row)
		}

		ctx := mat.NewDense(seq, headDim, nil)
		ctx.Mul(scores, vh)
		for r := 0; r < seq; r++ {
			for c := 0; c < headDim; c++ {
				context.Set(r, off+c, ctx.At(r, c))
			}
		}
	}

	attn := l.outLin.apply(context)
	attn.Add(attn, x)
	l.saNorm.apply(attn)

	ffn := l.ffnLin1.apply(attn)
	gelu(ffn)
	ffn = l.ffnLin2.apply(ffn)
	ffn.Add(ffn, attn)
	l.outputNorm.apply(ffn)

	return ffn
}

// gelu applies the exact Gaussian error linear unit in place.
func gelu(x *mat.Dense) {
	rows, cols := x.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := x.At(r, c)
			x.Set(r, c, 0.5*v*(1+math.Erf(v/math.Sqrt2)))
		}
	}
}

func relu(x *mat.Dense) {
	rows, cols := x.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if x.At(r, c) < 0 {
				x.Set(r, c, 0)
			}
		}
	}
}
