// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package manager_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/semvault-dev/semvault/internal/cluster"
	"github.com/semvault-dev/semvault/internal/embedding"
	"github.com/semvault-dev/semvault/internal/manager"
	"github.com/semvault-dev/semvault/internal/store"
	"github.com/semvault-dev/semvault/internal/vecmath"
	semerr "github.com/semvault-dev/semvault/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) (*manager.Manager, *store.Store) {
	t.Helper()

	model, err := embedding.NewLocalModel(64)
	require.NoError(t, err)

	st := store.New(store.NewMemorySnapshotter(), model.Dimensions())
	eng := cluster.NewEngine(cluster.Config{Rand: rand.New(rand.NewSource(7))})
	return manager.New(model, st, eng), st
}

func zeroThreshold() *float64 {
	th := -1.0
	return &th
}

func TestAddContentAndStats(t *testing.T) {
	m, _ := newManager(t)
	defer m.Close()
	ctx := context.Background()

	id, err := m.AddContent(ctx, "informe de finanzas y presupuesto",
		store.Metadata{"topic": store.StringValue("finanzas")}, store.KindText, "ana")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	report, err := m.ContentStats(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Store.Count)
	assert.Equal(t, 64, report.Store.Dimensions)
	assert.Greater(t, report.Store.MemoryBytes, int64(0))

	require.NotNil(t, report.Owner)
	assert.Equal(t, "ana", report.Owner.OwnerID)
	assert.Equal(t, 1, report.Owner.TotalItems)
	assert.Equal(t, 1, report.Owner.ByKind[store.KindText])
}

func TestContentStatsWithoutOwner(t *testing.T) {
	m, _ := newManager(t)
	defer m.Close()

	report, err := m.ContentStats(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, report.Owner)
	assert.Equal(t, 0, report.Store.Count)
}

func TestAddMultipleContent(t *testing.T) {
	m, st := newManager(t)
	defer m.Close()
	ctx := context.Background()

	ids, err := m.AddMultipleContent(ctx, []manager.Item{
		{Content: "finanzas presupuesto ahorro", Kind: store.KindText},
		{Content: "fútbol partido gol", Kind: store.KindText},
		{Content: "receta de cocina con arroz", Kind: store.KindDocument},
	}, "ana")
	require.NoError(t, err)
	require.Len(t, ids, 3)

	for _, id := range ids {
		rec, ok := st.Get(ctx, id)
		require.True(t, ok)
		assert.Equal(t, "ana", rec.OwnerID)
		assert.InDelta(t, 1.0, vecmath.Norm(rec.Vector), 1e-5)
	}
}

func TestAddMultipleContentEmpty(t *testing.T) {
	m, _ := newManager(t)
	defer m.Close()

	ids, err := m.AddMultipleContent(context.Background(), nil, "ana")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSemanticSearchFindsOwnContent(t *testing.T) {
	m, _ := newManager(t)
	defer m.Close()
	ctx := context.Background()

	id, err := m.AddContent(ctx, "finanzas presupuesto ahorro mensual", nil, store.KindText, "ana")
	require.NoError(t, err)
	_, err = m.AddContent(ctx, "fútbol partido gol estadio", nil, store.KindText, "ana")
	require.NoError(t, err)

	matches, err := m.SemanticSearch(ctx, "finanzas presupuesto ahorro mensual", manager.SearchOptions{
		Threshold: zeroThreshold(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	assert.Equal(t, id, matches[0].Record.ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestSemanticSearchOwnerScoped(t *testing.T) {
	m, _ := newManager(t)
	defer m.Close()
	ctx := context.Background()

	_, err := m.AddContent(ctx, "finanzas presupuesto ahorro", nil, store.KindText, "ana")
	require.NoError(t, err)
	_, err = m.AddContent(ctx, "finanzas presupuesto ahorro", nil, store.KindText, "bruno")
	require.NoError(t, err)

	matches, err := m.SemanticSearch(ctx, "finanzas presupuesto", manager.SearchOptions{
		OwnerID:   "ana",
		Threshold: zeroThreshold(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	for _, match := range matches {
		assert.Equal(t, "ana", match.Record.OwnerID)
	}
}

func TestSemanticSearchContextNamesOverlap(t *testing.T) {
	m, _ := newManager(t)
	defer m.Close()
	ctx := context.Background()

	_, err := m.AddContent(ctx, "informe de presupuesto anual", nil, store.KindText, "ana")
	require.NoError(t, err)

	matches, err := m.SemanticSearch(ctx, "presupuesto anual", manager.SearchOptions{
		Threshold: zeroThreshold(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Contains(t, matches[0].SemanticContext, "anual")
	assert.Contains(t, matches[0].SemanticContext, "presupuesto")
}

func TestSemanticSearchClusterEnrichment(t *testing.T) {
	m, _ := newManager(t)
	defer m.Close()
	ctx := context.Background()

	_, err := m.AddMultipleContent(ctx, []manager.Item{
		{Content: "finanzas presupuesto ahorro", Kind: store.KindText},
		{Content: "presupuesto de finanzas y ahorro", Kind: store.KindText},
		{Content: "fútbol partido gol", Kind: store.KindText},
		{Content: "el gol decidió el partido de fútbol", Kind: store.KindText},
	}, "ana")
	require.NoError(t, err)

	// Populate the engine cache so hits can reference clusters.
	_, err = m.OrganizeUserContent(ctx, "ana")
	require.NoError(t, err)

	matches, err := m.SemanticSearch(ctx, "finanzas presupuesto ahorro", manager.SearchOptions{
		Threshold: zeroThreshold(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	require.NotEmpty(t, matches[0].Clusters)
	assert.LessOrEqual(t, len(matches[0].Clusters), 3)
}

func TestSemanticSearchNoHits(t *testing.T) {
	m, _ := newManager(t)
	defer m.Close()

	matches, err := m.SemanticSearch(context.Background(), "cualquier cosa", manager.SearchOptions{})
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestFindSimilarContentExcludesSelf(t *testing.T) {
	m, _ := newManager(t)
	defer m.Close()
	ctx := context.Background()

	ids, err := m.AddMultipleContent(ctx, []manager.Item{
		{Content: "finanzas presupuesto ahorro", Kind: store.KindText},
		{Content: "presupuesto de finanzas y ahorro familiar", Kind: store.KindText},
		{Content: "plan de ahorro y presupuesto de finanzas", Kind: store.KindText},
	}, "ana")
	require.NoError(t, err)

	matches, err := m.FindSimilarContent(ctx, ids[0], 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	for _, match := range matches {
		assert.NotEqual(t, ids[0], match.Record.ID)
		assert.GreaterOrEqual(t, match.Score, 0.3)
	}
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestFindSimilarContentRespectsLimit(t *testing.T) {
	m, _ := newManager(t)
	defer m.Close()
	ctx := context.Background()

	ids, err := m.AddMultipleContent(ctx, []manager.Item{
		{Content: "finanzas presupuesto ahorro", Kind: store.KindText},
		{Content: "finanzas presupuesto ahorro familiar", Kind: store.KindText},
		{Content: "finanzas presupuesto ahorro mensual", Kind: store.KindText},
		{Content: "finanzas presupuesto ahorro anual", Kind: store.KindText},
	}, "ana")
	require.NoError(t, err)

	matches, err := m.FindSimilarContent(ctx, ids[0], 2)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestFindSimilarContentUnknownID(t *testing.T) {
	m, _ := newManager(t)
	defer m.Close()

	_, err := m.FindSimilarContent(context.Background(), "missing", 5)
	require.Error(t, err)
	assert.True(t, semerr.IsNotFound(err))
}

func TestUpdateContentReembedsOnChange(t *testing.T) {
	m, st := newManager(t)
	defer m.Close()
	ctx := context.Background()

	id, err := m.AddContent(ctx, "finanzas presupuesto ahorro", nil, store.KindText, "ana")
	require.NoError(t, err)
	before, ok := st.Get(ctx, id)
	require.True(t, ok)

	newContent := "fútbol partido gol estadio"
	found, err := m.UpdateContent(ctx, id, manager.ContentUpdate{Content: &newContent})
	require.NoError(t, err)
	require.True(t, found)

	after, ok := st.Get(ctx, id)
	require.True(t, ok)
	assert.Equal(t, newContent, after.Content)
	assert.Less(t, vecmath.Cosine(before.Vector, after.Vector), 0.99)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt) || after.UpdatedAt.Equal(before.UpdatedAt))
}

func TestUpdateContentSameContentKeepsVector(t *testing.T) {
	m, st := newManager(t)
	defer m.Close()
	ctx := context.Background()

	content := "finanzas presupuesto ahorro"
	id, err := m.AddContent(ctx, content, nil, store.KindText, "ana")
	require.NoError(t, err)
	before, _ := st.Get(ctx, id)

	found, err := m.UpdateContent(ctx, id, manager.ContentUpdate{
		Content:  &content,
		Metadata: store.Metadata{"reviewed": store.BoolValue(true)},
	})
	require.NoError(t, err)
	require.True(t, found)

	after, _ := st.Get(ctx, id)
	assert.Equal(t, before.Vector, after.Vector)
	assert.Equal(t, store.BoolValue(true), after.Metadata["reviewed"])
}

func TestUpdateContentUnknownID(t *testing.T) {
	m, _ := newManager(t)
	defer m.Close()

	found, err := m.UpdateContent(context.Background(), "missing", manager.ContentUpdate{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteContent(t *testing.T) {
	m, _ := newManager(t)
	defer m.Close()
	ctx := context.Background()

	id, err := m.AddContent(ctx, "finanzas presupuesto ahorro", nil, store.KindText, "ana")
	require.NoError(t, err)

	found, err := m.DeleteContent(ctx, id)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = m.DeleteContent(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)

	matches, err := m.SemanticSearch(ctx, "finanzas presupuesto ahorro", manager.SearchOptions{
		Threshold: zeroThreshold(),
	})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestOrganizeUserContent(t *testing.T) {
	m, _ := newManager(t)
	defer m.Close()
	ctx := context.Background()

	_, err := m.AddMultipleContent(ctx, []manager.Item{
		{Content: "finanzas presupuesto ahorro", Kind: store.KindText},
		{Content: "presupuesto de finanzas y ahorro familiar", Kind: store.KindText},
		{Content: "plan de ahorro y presupuesto de finanzas", Kind: store.KindText},
		{Content: "fútbol partido gol", Kind: store.KindText},
		{Content: "gran partido de fútbol con gol tempranero", Kind: store.KindText},
		{Content: "el gol decidió el partido de fútbol", Kind: store.KindText},
	}, "ana")
	require.NoError(t, err)

	_, err = m.AddContent(ctx, "contenido de otro usuario", nil, store.KindText, "bruno")
	require.NoError(t, err)

	org, err := m.OrganizeUserContent(ctx, "ana")
	require.NoError(t, err)
	require.NotNil(t, org)

	assert.Equal(t, 6, org.Stats.TotalItems)
	assert.Equal(t, org.Stats.TotalItems, org.Stats.ClusteredItems+org.Stats.UnclusteredItems)

	var members int
	for _, c := range org.Clusters {
		members += len(c.MemberIDs)
	}
	assert.Equal(t, 6, members, "every record of the owner is assigned")
}

func TestOrganizeUserContentEmptyOwner(t *testing.T) {
	m, _ := newManager(t)
	defer m.Close()

	org, err := m.OrganizeUserContent(context.Background(), "nadie")
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Empty(t, org.Clusters)
	assert.Empty(t, org.Unclustered)
	assert.Zero(t, org.Stats.TotalItems)
}

func TestEmbeddingHealthTracksDegradation(t *testing.T) {
	// An OpenAI model with no API key degrades every call to the local
	// model with an auth error; the tracker must see each one.
	model, err := embedding.NewOpenAIModel(embedding.OpenAIConfig{Dims: 64})
	require.NoError(t, err)
	st := store.New(store.NewMemorySnapshotter(), model.Dimensions())
	eng := cluster.NewEngine(cluster.Config{Rand: rand.New(rand.NewSource(1))})

	m := manager.New(model, st, eng)
	defer m.Close()

	assert.True(t, m.EmbeddingHealth().Healthy)

	_, err = m.AddContent(context.Background(), "contenido degradado", nil, store.KindText, "ana")
	require.NoError(t, err)

	metrics := m.EmbeddingHealth()
	assert.False(t, metrics.Healthy)
	assert.Equal(t, int64(1), metrics.DegradedCount)
	assert.Equal(t, string(embedding.DegradationRemoteAuthError), metrics.LastReason)
}

func TestLazyInitOnFirstOperation(t *testing.T) {
	model, err := embedding.NewLocalModel(64)
	require.NoError(t, err)
	st := store.New(store.NewMemorySnapshotter(), model.Dimensions())
	eng := cluster.NewEngine(cluster.Config{Rand: rand.New(rand.NewSource(1))})

	m := manager.New(model, st, eng)
	defer m.Close()

	// No explicit Init; the first call initializes the store.
	id, err := m.AddContent(context.Background(), "inicialización perezosa", nil, store.KindText, "ana")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}
