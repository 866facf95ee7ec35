// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/semvault-dev/semvault/internal/vecmath"
	semerr "github.com/semvault-dev/semvault/pkg/errors"
)

// DefaultLocalDimensions is the local model's vector size.
const DefaultLocalDimensions = 384

// reservedDims low-index dimensions hold explicit structural features;
// hashed word weights scatter into the remaining dimensions.
const reservedDims = 7

// scatterSlots is how many dimensions each word's weight disperses into.
const scatterSlots = 5

var (
	urlPattern   = regexp.MustCompile(`https?://|www\.`)
	emailPattern = regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[\w.]+`)
)

// documentFrequency is a small fixed prior over very common words.
// It is intentionally not corpus-derived: a corpus IDF would change as
// the store mutates and break "same text, same vector" determinism.
// Unknown words take defaultDocFrequency.
var documentFrequency = map[string]float64{
	"the": 0.9, "and": 0.85, "for": 0.8, "that": 0.75, "this": 0.7,
	"with": 0.7, "you": 0.65, "are": 0.65, "have": 0.6, "was": 0.6,
	"not": 0.6, "but": 0.55, "from": 0.55, "they": 0.5, "what": 0.5,
	"una": 0.7, "los": 0.7, "las": 0.65, "para": 0.65, "que": 0.75,
	"con": 0.6, "por": 0.6, "del": 0.55, "como": 0.5, "esta": 0.5,
}

const defaultDocFrequency = 0.1

// LocalModel is a deterministic heuristic embedder: TF weighted by a
// fixed document-frequency prior, dispersed across hashed dimensions,
// plus a handful of explicit structural features. It approximates
// "semantic" placement without a trained embedding space and exists as
// the always-available fallback for the remote models.
type LocalModel struct {
	dims int
}

var _ Model = (*LocalModel)(nil)

// NewLocalModel creates a local model with the given dimension count.
// Dimensions must leave room for the reserved structural features.
func NewLocalModel(dims int) (*LocalModel, error) {
	if dims <= reservedDims {
		return nil, semerr.Errorf(semerr.CodeEmbeddingDimensionsInvalid,
			"local model needs more than %d dimensions, got %d", reservedDims, dims)
	}
	return &LocalModel{dims: dims}, nil
}

func (m *LocalModel) Name() string    { return "local" }
func (m *LocalModel) Dimensions() int { return m.dims }

// Embed computes a unit-normalized vector for text. It never fails and
// never degrades; the error return only satisfies the Model contract.
func (m *LocalModel) Embed(_ context.Context, text string) (Result, error) {
	vec := make([]float32, m.dims)

	words := tokenize(text)
	m.writeStructuralFeatures(vec, text, words)

	if len(words) > 0 {
		tf := make(map[string]float64, len(words))
		for _, w := range words {
			tf[w]++
		}
		total := float64(len(words))

		for word, count := range tf {
			df, ok := documentFrequency[word]
			if !ok {
				df = defaultDocFrequency
			}
			weight := (count / total) * math.Log(1.0/df)
			m.scatter(vec, word, weight)
		}
	}

	return Result{Vector: vecmath.Normalize(vec)}, nil
}

// EmbedBatch embeds texts in order.
func (m *LocalModel) EmbedBatch(ctx context.Context, texts []string) ([]Result, error) {
	results := make([]Result, len(texts))
	for i, text := range texts {
		r, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		results[i] = r
	}
	return results, nil
}

// scatter disperses a word's weight into scatterSlots hashed dimensions
// outside the reserved range, tapering with each slot.
func (m *LocalModel) scatter(vec []float32, word string, weight float64) {
	span := m.dims - reservedDims
	for slot := 0; slot < scatterSlots; slot++ {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		_, _ = h.Write([]byte("#" + strconv.Itoa(slot)))
		dim := reservedDims + int(h.Sum32())%span
		vec[dim] += float32(weight / float64(slot+1))
	}
}

func (m *LocalModel) writeStructuralFeatures(vec []float32, text string, words []string) {
	if strings.Contains(text, "?") {
		vec[0] = 1
	}
	if strings.ContainsAny(text, "0123456789") {
		vec[1] = 1
	}
	if urlPattern.MatchString(text) {
		vec[2] = 1
	}
	if emailPattern.MatchString(text) {
		vec[3] = 1
	}

	vec[4] = float32(math.Min(float64(len(text))/1000.0, 1))
	vec[5] = float32(math.Min(float64(len(words))/100.0, 1))

	if len(words) > 0 {
		var totalLen int
		for _, w := range words {
			totalLen += len(w)
		}
		avg := float64(totalLen) / float64(len(words))
		vec[6] = float32(math.Min(avg/10.0, 1))
	}
}

// tokenize lower-cases text, strips punctuation, and keeps words longer
// than two characters.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})

	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) > 2 {
			words = append(words, f)
		}
	}
	return words
}

func isWordRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r >= 'à' && r <= 'ÿ'
}
