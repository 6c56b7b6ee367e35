package search

import (
	"math"

	"github.com/stratadb/strata/internal/hash"
)

// Embed folds tokens into a fixed-width pseudo-embedding by feature hashing:
// each token hashes to a bucket and a sign, and the result is L2-normalized.
// Text stored with the same token distribution lands near the same point, so
// the vector pass can score stored embeddings produced the same way against
// a query without a model in the loop.
func Embed(tokens []string, dimension int) []float32 {
	vec := make([]float32, dimension)
	if dimension == 0 || len(tokens) == 0 {
		return vec
	}
	for _, t := range tokens {
		h := hash.CRC32C([]byte(t))
		bucket := int(h % uint32(dimension)) //nolint:gosec
		if h&0x80000000 != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}
	var norm float64
	for _, f := range vec {
		norm += float64(f) * float64(f)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
