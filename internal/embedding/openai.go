// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package embedding

import (
	"context"
	"errors"
	"log/slog"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/semvault-dev/semvault/internal/vecmath"
)

// DefaultOpenAIModel is the embedding model requested when none is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// DefaultRemoteDimensions matches text-embedding-3-small.
const DefaultRemoteDimensions = 1536

// DefaultRemoteTimeout bounds every remote embedding call. Expiry is
// treated like any other remote failure: fall back to the local model.
const DefaultRemoteTimeout = 10 * time.Second

// OpenAIConfig holds OpenAI embedding model configuration.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
	Model   string
	Dims    int
	Timeout time.Duration
}

// OpenAIModel generates embeddings through the OpenAI embeddings API
// and degrades to a local model on any failure. Callers never see a
// remote error; the Result's Degradation tag records what happened.
type OpenAIModel struct {
	client   openaisdk.Client
	model    string
	dims     int
	timeout  time.Duration
	hasKey   bool
	fallback *LocalModel
}

var _ Model = (*OpenAIModel)(nil)

// NewOpenAIModel creates an OpenAI-backed model. A missing API key is
// not an error: every call degrades to the local model instead.
func NewOpenAIModel(cfg OpenAIConfig) (*OpenAIModel, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
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

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIModel{
		client:   openaisdk.NewClient(opts...),
		model:    cfg.Model,
		dims:     cfg.Dims,
		timeout:  cfg.Timeout,
		hasKey:   cfg.APIKey != "",
		fallback: fallback,
	}, nil
}

func (m *OpenAIModel) Name() string    { return "openai" }
func (m *OpenAIModel) Dimensions() int { return m.dims }

// Embed requests a remote embedding, degrading to the local model on
// missing key, transport error, non-success status, timeout, or a
// malformed response.
func (m *OpenAIModel) Embed(ctx context.Context, text string) (Result, error) {
	if !m.hasKey {
		return m.degrade(ctx, text, DegradationRemoteAuthError)
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, err := m.client.Embeddings.New(callCtx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfString: openaisdk.String(text)},
		Model: openaisdk.EmbeddingModel(m.model),
	})
	if err != nil {
		return m.degrade(ctx, text, classifyRemoteError(err))
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) != m.dims {
		return m.degrade(ctx, text, DegradationRemoteResponseInvalid)
	}

	return Result{Vector: toFloat32(resp.Data[0].Embedding)}, nil
}

// EmbedBatch embeds all texts in one array-input request; on failure
// the whole batch degrades to local computation.
func (m *OpenAIModel) EmbedBatch(ctx context.Context, texts []string) ([]Result, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if !m.hasKey {
		return m.degradeBatch(ctx, texts, DegradationRemoteAuthError)
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, err := m.client.Embeddings.New(callCtx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openaisdk.EmbeddingModel(m.model),
	})
	if err != nil {
		return m.degradeBatch(ctx, texts, classifyRemoteError(err))
	}

	if len(resp.Data) != len(texts) {
		return m.degradeBatch(ctx, texts, DegradationRemoteResponseInvalid)
	}

	results := make([]Result, len(texts))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(results) || len(item.Embedding) != m.dims {
			return m.degradeBatch(ctx, texts, DegradationRemoteResponseInvalid)
		}
		results[idx] = Result{Vector: toFloat32(item.Embedding)}
	}
	return results, nil
}

func (m *OpenAIModel) degrade(ctx context.Context, text string, why Degradation) (Result, error) {
	slog.Debug("remote embedding degraded to local model", "provider", m.Name(), "reason", string(why))

	local, err := m.fallback.Embed(ctx, text)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Vector:      vecmath.Resize(local.Vector, m.dims),
		Degradation: why,
	}, nil
}

func (m *OpenAIModel) degradeBatch(ctx context.Context, texts []string, why Degradation) ([]Result, error) {
	results := make([]Result, len(texts))
	for i, text := range texts {
		r, err := m.degrade(ctx, text, why)
		if err != nil {
			return nil, err
		}
		results[i] = r
	}
	return results, nil
}

func classifyRemoteError(err error) Degradation {
	if errors.Is(err, context.DeadlineExceeded) {
		return DegradationRemoteTimeout
	}

	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return DegradationRemoteAuthError
		case 422:
			return DegradationRemoteResponseInvalid
		}
	}

	return DegradationRemoteUnavailable
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, x := range in {
		out[i] = float32(x)
	}
	return out
}
