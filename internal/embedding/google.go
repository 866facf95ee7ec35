// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package embedding

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/semvault-dev/semvault/internal/vecmath"
	semerr "github.com/semvault-dev/semvault/pkg/errors"
)

// DefaultGoogleModel is the Gemini embedding model requested when none
// is configured.
const DefaultGoogleModel = "gemini-embedding-001"

// GoogleConfig holds Gemini embedding model configuration.
type GoogleConfig struct {
	APIKey  string
	Model   string
	Dims    int
	Timeout time.Duration
}

// GoogleModel generates embeddings through the Gemini API with the
// same silent degradation discipline as the OpenAI model.
type GoogleModel struct {
	client   *genai.Client
	model    string
	dims     int
	timeout  time.Duration
	fallback *LocalModel
}

var _ Model = (*GoogleModel)(nil)

// NewGoogleModel creates a Gemini-backed model. Unlike the OpenAI SDK
// the genai client refuses construction without a key, so a missing
// key leaves the client nil and every call degrades locally.
func NewGoogleModel(cfg GoogleConfig) (*GoogleModel, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultGoogleModel
	}
	if cfg.Dims <= 0 {
		cfg.Dims = DefaultRemoteDimensions
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRemoteTimeout
	}

	fallback, err := NewLocalModel(DefaultLocalDimensions)
	if err != nil {
		return nil, err
	}

	m := &GoogleModel{
		model:    cfg.Model,
		dims:     cfg.Dims,
		timeout:  cfg.Timeout,
		fallback: fallback,
	}

	if cfg.APIKey != "" {
		client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, semerr.Wrapf(err, semerr.CodeEmbeddingUpstreamFailure, "google: creating client")
		}
		m.client = client
	}

	return m, nil
}

func (m *GoogleModel) Name() string    { return "google" }
func (m *GoogleModel) Dimensions() int { return m.dims }

func (m *GoogleModel) Embed(ctx context.Context, text string) (Result, error) {
	results, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

// EmbedBatch embeds all texts through one EmbedContent call.
func (m *GoogleModel) EmbedBatch(ctx context.Context, texts []string) ([]Result, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if m.client == nil {
		return m.degradeBatch(ctx, texts, DegradationRemoteAuthError)
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.Text(text)...)
	}

	resp, err := m.client.Models.EmbedContent(callCtx, m.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(m.dims)),
	})
	if err != nil {
		return m.degradeBatch(ctx, texts, classifyGoogleError(err))
	}

	if len(resp.Embeddings) != len(texts) {
		return m.degradeBatch(ctx, texts, DegradationRemoteResponseInvalid)
	}

	results := make([]Result, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return m.degradeBatch(ctx, texts, DegradationRemoteResponseInvalid)
		}
		// Gemini vectors are not unit-length at reduced dimensionality.
		vec := make([]float32, len(emb.Values))
		copy(vec, emb.Values)
		results[i] = Result{Vector: vecmath.Resize(vecmath.Normalize(vec), m.dims)}
	}
	return results, nil
}

func (m *GoogleModel) degradeBatch(ctx context.Context, texts []string, why Degradation) ([]Result, error) {
	slog.Debug("remote embedding degraded to local model", "provider", m.Name(), "reason", string(why))

	results := make([]Result, len(texts))
	for i, text := range texts {
		local, err := m.fallback.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		results[i] = Result{
			Vector:      vecmath.Resize(local.Vector, m.dims),
			Degradation: why,
		}
	}
	return results, nil
}

func classifyGoogleError(err error) Degradation {
	if errors.Is(err, context.DeadlineExceeded) {
		return DegradationRemoteTimeout
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return DegradationRemoteAuthError
		case 400:
			if strings.Contains(strings.ToLower(apiErr.Message), "api key") {
				return DegradationRemoteAuthError
			}
		}
	}

	return DegradationRemoteUnavailable
}
