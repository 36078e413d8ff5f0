package experience

// #region imports
import (
	"context"
	"math"
	"strings"
	"unicode"
)

// #endregion

// #region similarity-interface

// Similarity scores how close a stored input text is to a query, in [0, 1].
// Selected at store construction: token overlap by default, vector
// embedding when an embedder is available.
type Similarity interface {
	Score(query, text string) float64
}

// #endregion

// #region stopwords

// stopwords are common English words excluded from token matching.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "not": true, "no": true,
	"and": true, "or": true, "but": true, "if": true, "then": true,
	"than": true, "so": true, "as": true, "at": true, "by": true,
	"for": true, "from": true, "in": true, "into": true, "of": true,
	"on": true, "to": true, "with": true, "about": true, "it": true,
	"its": true, "this": true, "that": true, "what": true, "which": true,
	"who": true, "how": true, "when": true, "where": true, "why": true,
	"you": true, "me": true, "i": true, "my": true, "your": true,
	"we": true, "they": true, "please": true,
}

// tokenize splits text into unique lowercase non-stopword tokens. CJK runs
// are split into single characters so Chinese inputs still overlap.
func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		runes := []rune(w)
		if len(runes) > 0 && unicode.Is(unicode.Han, runes[0]) {
			for _, r := range runes {
				tokens[string(r)] = true
			}
			continue
		}
		if len(w) < 2 || stopwords[w] {
			continue
		}
		tokens[w] = true
	}
	return tokens
}

// #endregion

// #region token-overlap

// TokenOverlap is the default similarity: Jaccard index over
// stopword-filtered token sets.
type TokenOverlap struct{}

// Score computes |A∩B| / |A∪B|.
func (TokenOverlap) Score(query, text string) float64 {
	a := tokenize(query)
	b := tokenize(text)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if b[t] {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}

// #endregion

// #region vector-similarity

// Embedder produces an embedding vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// VectorSimilarity scores by cosine similarity of embeddings. Embedding
// failures degrade to 0 rather than erroring, so retrieval never blocks a
// turn.
type VectorSimilarity struct {
	embedder Embedder
	cache    map[string][]float64
}

// NewVectorSimilarity wraps an embedder with a small per-store cache.
func NewVectorSimilarity(embedder Embedder) *VectorSimilarity {
	return &VectorSimilarity{
		embedder: embedder,
		cache:    make(map[string][]float64),
	}
}

// Score computes cosine similarity, clamped to [0, 1].
func (v *VectorSimilarity) Score(query, text string) float64 {
	qv := v.embed(query)
	tv := v.embed(text)
	if qv == nil || tv == nil {
		return 0
	}
	sim := cosine(qv, tv)
	if sim < 0 {
		return 0
	}
	return sim
}

func (v *VectorSimilarity) embed(text string) []float64 {
	if cached, ok := v.cache[text]; ok {
		return cached
	}
	vec, err := v.embedder.Embed(context.Background(), text)
	if err != nil {
		return nil
	}
	v.cache[text] = vec
	return vec
}

// cosine computes cosine similarity; 0 for mismatched or zero vectors.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// #endregion
