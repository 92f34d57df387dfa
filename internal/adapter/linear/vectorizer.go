package linear

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

var (
	// Tokens are maximal runs of two or more word characters. Go's \w is
	// ASCII-only, so spell out the Unicode classes the fitted vocabulary
	// was built with.
	wordPattern       = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)
	urlPattern        = regexp.MustCompile(`http\S+|www\S+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// VectorizerConfig is the serialized form of a fitted TF-IDF vectorizer as
// exported by the training pipeline.
type VectorizerConfig struct {
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	NgramMin    int            `json:"ngram_min"`
	NgramMax    int            `json:"ngram_max"`
	Lowercase   bool           `json:"lowercase"`
	SublinearTF bool           `json:"sublinear_tf"`
	Norm        string         `json:"norm"`
}

// Vectorizer maps raw text into the sparse TF-IDF feature space the linear
// classifiers were trained on. It is immutable after construction.
type Vectorizer struct {
	vocabulary  map[string]int
	idf         []float64
	ngramMin    int
	ngramMax    int
	lowercase   bool
	sublinearTF bool
	l2Norm      bool
}

// NewVectorizer validates the serialized config and builds a Vectorizer.
func NewVectorizer(cfg *VectorizerConfig) (*Vectorizer, error) {
	if len(cfg.Vocabulary) == 0 {
		return nil, fmt.Errorf("vectorizer has empty vocabulary")
	}
	for term, idx := range cfg.Vocabulary {
		if idx < 0 || idx >= len(cfg.IDF) {
			return nil, fmt.Errorf("vocabulary term %q has index %d outside idf table of size %d", term, idx, len(cfg.IDF))
		}
	}

	ngramMin, ngramMax := cfg.NgramMin, cfg.NgramMax
	if ngramMin < 1 {
		ngramMin = 1
	}
	if ngramMax < ngramMin {
		ngramMax = ngramMin
	}

	return &Vectorizer{
		vocabulary:  cfg.Vocabulary,
		idf:         cfg.IDF,
		ngramMin:    ngramMin,
		ngramMax:    ngramMax,
		lowercase:   cfg.Lowercase,
		sublinearTF: cfg.SublinearTF,
		l2Norm:      cfg.Norm == "" || strings.EqualFold(cfg.Norm, "l2"),
	}, nil
}

// NumFeatures returns the dimensionality of the feature space.
func (v *Vectorizer) NumFeatures() int {
	return len(v.idf)
}

// Transform converts text into a sparse feature vector keyed by feature
// index. Unknown n-grams are dropped. The same text always produces the
// same vector.
func (v *Vectorizer) Transform(text string) map[int]float64 {
	tokens := v.tokenize(text)

	// Raw term frequencies over all requested n-gram sizes.
	counts := make(map[int]float64)
	for n := v.ngramMin; n <= v.ngramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			gram := strings.Join(tokens[i:i+n], " ")
			if idx, ok := v.vocabulary[gram]; ok {
				counts[idx]++
			}
		}
	}

	var sumSquares float64
	for idx, tf := range counts {
		if v.sublinearTF {
			tf = 1 + math.Log(tf)
		}
		weighted := tf * v.idf[idx]
		counts[idx] = weighted
		sumSquares += weighted * weighted
	}

	if v.l2Norm && sumSquares > 0 {
		norm := math.Sqrt(sumSquares)
		for idx := range counts {
			counts[idx] /= norm
		}
	}

	return counts
}

func (v *Vectorizer) tokenize(text string) []string {
	text = cleanText(text)
	if v.lowercase {
		text = strings.ToLower(text)
	}
	return wordPattern.FindAllString(text, -1)
}

// cleanText strips URLs and collapses runs of whitespace, mirroring the
// preprocessing the baselines were trained with.
func cleanText(text string) string {
	text = urlPattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
