// Package distance provides similarity scoring for vector search.
//
// All metrics use a single "higher is better" convention so results from
// different metrics sort the same way:
//
//   - Cosine: dot(a,b) / (|a|*|b|), zero vectors score 0
//   - Euclidean: negated L2 distance
//   - Dot: raw dot product
package distance

import (
	"fmt"
	"math"
)

// Metric represents the similarity metric used for vector comparison.
type Metric uint8

const (
	// MetricCosine is cosine similarity.
	MetricCosine Metric = iota
	// MetricEuclidean is negated Euclidean (L2) distance.
	MetricEuclidean
	// MetricDot is the raw dot product.
	MetricDot
)

// String returns the stable wire name of the metric.
func (m Metric) String() string {
	switch m {
	case MetricCosine:
		return "cosine"
	case MetricEuclidean:
		return "euclidean"
	case MetricDot:
		return "dot_product"
	default:
		return fmt.Sprintf("unknown(%d)", m)
	}
}

// ParseMetric resolves a wire-level metric name.
func ParseMetric(name string) (Metric, error) {
	switch name {
	case "cosine":
		return MetricCosine, nil
	case "euclidean":
		return MetricEuclidean, nil
	case "dot_product", "dotproduct", "dot":
		return MetricDot, nil
	default:
		return 0, fmt.Errorf("unknown distance metric %q", name)
	}
}

// Func scores two equal-length vectors; higher is better.
type Func func(a, b []float32) float32

// Provider returns the scoring function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricCosine:
		return Cosine, nil
	case MetricEuclidean:
		return NegL2, nil
	case MetricDot:
		return Dot, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Cosine calculates the cosine similarity of two vectors.
// Returns 0 when either vector has zero norm.
func Cosine(a, b []float32) float32 {
	var dot, na, nb float32
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / float32(math.Sqrt(float64(na))*math.Sqrt(float64(nb)))
}

// NegL2 calculates the negated Euclidean distance, so that nearer vectors
// score higher like the similarity metrics.
func NegL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return -float32(math.Sqrt(float64(sum)))
}
