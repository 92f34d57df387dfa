package transformer

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Special tokens expected in every vocabulary.
const (
	tokenCLS = "[CLS]"
	tokenSEP = "[SEP]"
	tokenUNK = "[UNK]"

	// Single words longer than this are mapped straight to [UNK] instead
	// of being split, matching the reference WordPiece implementation.
	maxWordChars = 100
)

// Tokenizer performs lowercased WordPiece tokenization over a fixed
// vocabulary. It is immutable after construction.
type Tokenizer struct {
	vocab map[string]int
	cls   int
	sep   int
	unk   int
}

// NewTokenizer loads a vocab.txt file with one token per line, in id order.
func NewTokenizer(path string) (*Tokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vocab := make(map[string]int)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		token := strings.TrimRight(scanner.Text(), "\r\n")
		if token == "" {
			continue
		}
		if _, dup := vocab[token]; !dup {
			vocab[token] = len(vocab)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	t := &Tokenizer{vocab: vocab}
	for _, special := range []struct {
		token string
		dst   *int
	}{{tokenCLS, &t.cls}, {tokenSEP, &t.sep}, {tokenUNK, &t.unk}} {
		id, ok := vocab[special.token]
		if !ok {
			return nil, fmt.Errorf("vocabulary %s is missing %s", path, special.token)
		}
		*special.dst = id
	}
	return t, nil
}

// VocabSize returns the number of entries in the vocabulary.
func (t *Tokenizer) VocabSize() int {
	return len(t.vocab)
}

// Encode converts text to token ids wrapped in [CLS]/[SEP], truncated so the
// sequence never exceeds maxLen.
func (t *Tokenizer) Encode(text string, maxLen int) []int {
	if maxLen < 2 {
		maxLen = 2
	}
	words := basicTokenize(text)

	ids := make([]int, 0, maxLen)
	ids = append(ids, t.cls)
	budget := maxLen - 2
	for _, word := range words {
		pieces := t.wordpiece(word)
		if len(ids)-1+len(pieces) > budget {
			pieces = pieces[:budget-(len(ids)-1)]
		}
		ids = append(ids, pieces...)
		if len(ids)-1 >= budget {
			break
		}
	}
	return append(ids, t.sep)
}

// wordpiece splits a single lowercase word with greedy longest-match-first,
// prefixing continuation pieces with "##".
func (t *Tokenizer) wordpiece(word string) []int {
	if len(word) > maxWordChars {
		return []int{t.unk}
	}

	runes := []rune(word)
	var pieces []int
	start := 0
	for start < len(runes) {
		end := len(runes)
		matched := -1
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok := t.vocab[sub]; ok {
				matched = id
				break
			}
			end--
		}
		if matched < 0 {
			// Any unmatchable character invalidates the whole word.
			return []int{t.unk}
		}
		pieces = append(pieces, matched)
		start = end
	}
	return pieces
}

// basicTokenize lowercases, strips accents and splits on whitespace and
// around punctuation, so "don't!" becomes ["don", "'", "t", "!"] and
// "estúpido" becomes ["estupido"].
func basicTokenize(text string) []string {
	text = stripAccents(strings.ToLower(text))

	var words []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			words = append(words, string(r))
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}

// stripAccents decomposes to NFD and drops combining marks, the same
// treatment the uncased tokenizer applied when the vocabulary was built.
func stripAccents(text string) string {
	decomposed := norm.NFD.String(text)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
