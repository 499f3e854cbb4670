package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"drive-go/internal/drive"
)

// trigramWeight scales character trigram features relative to whole tokens,
// so "reports" still lands near "report".
const trigramWeight = 0.5

// HashingEmbedder maps text to a fixed-length vector by feature hashing over
// tokens and their character trigrams. It needs no model or corpus, and the
// same text always yields the same vector.
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder creates an embedder producing vectors of length dim.
func NewHashingEmbedder(dim int) (*HashingEmbedder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("hashing embedder dimension must be positive, got %d", dim)
	}
	return &HashingEmbedder{dim: dim}, nil
}

func (e *HashingEmbedder) Name() string { return "hashing" }

func (e *HashingEmbedder) Dimension() int { return e.dim }

// Embed returns the L2-normalized feature vector for text. Text without any
// tokens yields the zero vector.
func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	acc := make([]float64, e.dim)
	for _, tok := range Tokenize(text) {
		e.add(acc, "w:"+tok, 1)
		for _, tri := range trigrams(tok) {
			e.add(acc, "c:"+tri, trigramWeight)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, e.dim)
	if norm == 0 {
		return vec, nil
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec, nil
}

// add folds one feature into acc. The high bit of the hash picks the sign so
// collisions cancel out on average instead of piling up.
func (e *HashingEmbedder) add(acc []float64, feature string, weight float64) {
	h := xxhash.Sum64String(feature)
	idx := int(h % uint64(e.dim))
	if h>>63 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}

// trigrams returns the character trigrams of tok padded with boundary
// markers. Tokens shorter than two runes yield none.
func trigrams(tok string) []string {
	r := []rune("^" + tok + "$")
	if len(r) < 4 {
		return nil
	}
	out := make([]string, 0, len(r)-2)
	for i := 0; i+3 <= len(r); i++ {
		out = append(out, string(r[i:i+3]))
	}
	return out
}

var _ drive.Embedder = (*HashingEmbedder)(nil)
