// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

// Package vecmath provides the scalar vector primitives shared by the
// embedding models, the record store, and the clustering engine.
package vecmath

import "math"

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Vectors of different lengths or zero magnitude score 0 rather than
// erroring, so a foreign-model vector simply never matches.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize scales v to unit L2 length in place and returns it.
// A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	if sum == 0 {
		return v
	}

	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// Norm returns the L2 magnitude of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Mean returns the element-wise mean of the given vectors. All vectors
// must share the same length; inputs of a different length are skipped.
func Mean(vectors [][]float32, dims int) []float32 {
	mean := make([]float32, dims)
	if len(vectors) == 0 {
		return mean
	}

	count := 0
	for _, v := range vectors {
		if len(v) != dims {
			continue
		}
		for i, x := range v {
			mean[i] += x
		}
		count++
	}

	if count == 0 {
		return mean
	}

	for i := range mean {
		mean[i] /= float32(count)
	}
	return mean
}

// Resize truncates or zero-pads v to dims and re-normalizes the result.
// Used when a locally computed vector must match a remote model's
// declared dimensionality.
func Resize(v []float32, dims int) []float32 {
	if len(v) == dims {
		return v
	}

	out := make([]float32, dims)
	copy(out, v)
	return Normalize(out)
}
