package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"math"

	"github.com/alphacv/matchcore/pkg/types"
)

// DefaultFunction is a deterministic, dependency-free stand-in for a
// real sentence-embedding model: every run on the same text produces
// the same vector, satisfying the determinism requirement without
// pulling in a model runtime. It is generalized from the placeholder
// hash embedding the teacher used for policy text, fixed to a proper
// L2 normalize (the source divided by sum-of-squares plus an epsilon,
// which is not a unit-norm projection) since the bundle invariant here
// requires ‖v‖₂ within 1e-6 of 1.
func DefaultFunction(text string) ([]float64, error) {
	dim := types.VectorDim
	vec := make([]float64, dim)
	h := simpleHash(text)

	for i := 0; i < dim; i++ {
		vec[i] = float64((h*31+int64(i))%200-100) / 100.0
	}

	normalizeL2(vec)
	return vec, nil
}

func simpleHash(s string) int64 {
	var h int64
	for _, ch := range s {
		h = h*31 + int64(ch)
	}
	if h < 0 {
		h = -h
	}
	return h
}

func normalizeL2(vec []float64) {
	var sumSq float64
	for _, v := range vec {
		sumSq += v * v
	}
	if sumSq == 0 {
		return
	}
	norm := math.Sqrt(sumSq)
	for i := range vec {
		vec[i] /= norm
	}
}

// ComputeHash returns a stable content hash for cache keying, grounded
// in the teacher's ComputePolicyHash.
func ComputeHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
