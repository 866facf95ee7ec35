// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

// Package embedding turns text into fixed-dimension unit vectors.
//
// Two model families exist: a deterministic local hashing model, and
// remote API models (OpenAI, Gemini) that silently degrade to the local
// model on any failure. Degradation is never surfaced as an error; it is
// reported through the Result tag so callers and tests can observe it.
package embedding

import "context"

// Degradation records why a remote embedding call fell back to the
// local model. Empty means the vector came from the intended source.
type Degradation string

const (
	DegradationNone                  Degradation = ""
	DegradationRemoteUnavailable     Degradation = "remote_unavailable"
	DegradationRemoteTimeout         Degradation = "remote_timeout"
	DegradationRemoteAuthError       Degradation = "remote_auth_error"
	DegradationRemoteResponseInvalid Degradation = "remote_response_invalid"
)

// Result is one generated embedding.
type Result struct {
	Vector      []float32
	Degradation Degradation
}

// Degraded reports whether the vector was computed by a fallback path.
func (r Result) Degraded() bool { return r.Degradation != DegradationNone }

// Model maps text to unit-normalized vectors of a fixed dimension.
// Implementations must be deterministic for a given text and must keep
// batch output in input order.
type Model interface {
	Embed(ctx context.Context, text string) (Result, error)
	EmbedBatch(ctx context.Context, texts []string) ([]Result, error)
	Dimensions() int
	Name() string
}
