// Package similarity provides cosine similarity over embedding vectors.
package similarity

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateVector is returned when a vector has zero norm
var ErrDegenerateVector = errors.New("degenerate vector with zero norm")

// Cosine returns the cosine similarity of u and v.
// It fails with ErrDegenerateVector if either vector has zero norm.
func Cosine(u, v []float32) (float64, error) {
	if len(u) != len(v) {
		return 0, fmt.Errorf("dimension mismatch: %d != %d", len(u), len(v))
	}

	var dot, normU, normV float64
	for i := range u {
		a, b := float64(u[i]), float64(v[i])
		dot += a * b
		normU += a * a
		normV += b * b
	}
	if normU == 0 || normV == 0 {
		return 0, ErrDegenerateVector
	}

	return dot / (math.Sqrt(normU) * math.Sqrt(normV)), nil
}

// CosineOrZero returns the cosine similarity or 0 if it cannot be computed
func CosineOrZero(u, v []float32) float64 {
	s, err := Cosine(u, v)
	if err != nil {
		return 0
	}
	return s
}

// Normalize returns a unit length copy of v
func Normalize(v []float32) ([]float32, error) {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return nil, ErrDegenerateVector
	}

	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

// Dot returns the inner product of u and v
func Dot(u, v []float32) float64 {
	var dot float64
	for i := range u {
		if i >= len(v) {
			break
		}
		dot += float64(u[i]) * float64(v[i])
	}
	return dot
}
