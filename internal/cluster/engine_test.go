// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package cluster_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/semvault-dev/semvault/internal/cluster"
	"github.com/semvault-dev/semvault/internal/embedding"
	"github.com/semvault-dev/semvault/internal/store"
	"github.com/semvault-dev/semvault/internal/vecmath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(seed int64) *cluster.Engine {
	return cluster.NewEngine(cluster.Config{Rand: rand.New(rand.NewSource(seed))})
}

func rec(id string, vec []float32, content string) *store.Record {
	return &store.Record{ID: id, Vector: vecmath.Normalize(vec), Content: content, Kind: store.KindText}
}

func embeddedRecords(t *testing.T, texts []string) []*store.Record {
	t.Helper()
	model, err := embedding.NewLocalModel(embedding.DefaultLocalDimensions)
	require.NoError(t, err)

	records := make([]*store.Record, len(texts))
	for i, text := range texts {
		r, err := model.Embed(context.Background(), text)
		require.NoError(t, err)
		records[i] = &store.Record{
			ID:      fmt.Sprintf("rec-%d", i),
			Vector:  r.Vector,
			Content: text,
			Kind:    store.KindText,
		}
	}
	return records
}

func assertExactPartition(t *testing.T, records []*store.Record, clusters []*cluster.SemanticCluster) {
	t.Helper()

	seen := map[string]int{}
	for _, c := range clusters {
		for _, id := range c.MemberIDs {
			seen[id]++
		}
	}

	assert.Len(t, seen, len(records))
	for _, r := range records {
		assert.Equal(t, 1, seen[r.ID], "record %s must appear exactly once", r.ID)
	}
}

func TestClusterEmptyInput(t *testing.T) {
	e := newEngine(1)
	clusters, err := e.Cluster(context.Background(), nil, 3)
	require.NoError(t, err)
	assert.Empty(t, clusters)
}

func TestClusterFewerRecordsThanK(t *testing.T) {
	e := newEngine(1)
	records := []*store.Record{
		rec("a", []float32{1, 0, 0}, "primero"),
		rec("b", []float32{0, 1, 0}, "segundo"),
	}

	clusters, err := e.Cluster(context.Background(), records, 5)
	require.NoError(t, err)
	require.Len(t, clusters, 2, "degenerates to one cluster per record")

	for _, c := range clusters {
		assert.Len(t, c.MemberIDs, 1)
		assert.Equal(t, 1.0, c.Confidence)
		assert.InDelta(t, 1.0, vecmath.Norm(c.Centroid), 1e-5)
	}
	assertExactPartition(t, records, clusters)
}

func TestClusterPartitionIsExact(t *testing.T) {
	for _, k := range []int{1, 2, 3, 6} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			e := newEngine(7)
			records := embeddedRecords(t, []string{
				"finanzas presupuesto ahorro mensual",
				"presupuesto ahorro gastos del hogar",
				"informe de finanzas y ahorro anual",
				"fútbol partido gol estadio",
				"el partido terminó con gol de penalti",
				"resumen del campeonato de fútbol",
			})

			clusters, err := e.Cluster(context.Background(), records, k)
			require.NoError(t, err)
			assertExactPartition(t, records, clusters)
		})
	}
}

func TestClusterBilingualTopicsSplitInTwo(t *testing.T) {
	e := newEngine(42)
	records := embeddedRecords(t, []string{
		"finanzas presupuesto ahorro",
		"presupuesto de finanzas y ahorro familiar",
		"plan de ahorro y presupuesto de finanzas",
		"fútbol partido gol",
		"gran partido de fútbol con gol tempranero",
		"el gol decidió el partido de fútbol",
	})

	clusters, err := e.Cluster(context.Background(), records, 2)
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	assertExactPartition(t, records, clusters)
}

func TestClusterCentroidIsNormalizedMemberMean(t *testing.T) {
	e := newEngine(3)
	records := []*store.Record{
		rec("a", []float32{1, 0, 0}, "eje x"),
		rec("b", []float32{1, 0.1, 0}, "casi eje x"),
		rec("c", []float32{0, 0, 1}, "eje z"),
		rec("d", []float32{0, 0.1, 1}, "casi eje z"),
	}

	clusters, err := e.Cluster(context.Background(), records, 2)
	require.NoError(t, err)

	for _, c := range clusters {
		assert.InDelta(t, 1.0, vecmath.Norm(c.Centroid), 1e-5)

		var members [][]float32
		for _, id := range c.MemberIDs {
			for _, r := range records {
				if r.ID == id {
					members = append(members, r.Vector)
				}
			}
		}
		want := vecmath.Normalize(vecmath.Mean(members, 3))
		assert.InDelta(t, 1.0, vecmath.Cosine(want, c.Centroid), 1e-5)
	}
}

func TestClusterConfidenceRange(t *testing.T) {
	e := newEngine(5)
	records := embeddedRecords(t, []string{
		"texto sobre finanzas y presupuesto",
		"otro texto sobre finanzas y ahorro",
		"receta de cocina con tomate y arroz",
		"instrucciones para plantar tomates",
	})

	clusters, err := e.Cluster(context.Background(), records, 2)
	require.NoError(t, err)

	for _, c := range clusters {
		assert.GreaterOrEqual(t, c.Confidence, -1.0)
		assert.LessOrEqual(t, c.Confidence, 1.0)
		if len(c.MemberIDs) == 1 {
			assert.Equal(t, 1.0, c.Confidence)
		}
	}
}

func TestClusterSameSeedSameResult(t *testing.T) {
	records := embeddedRecords(t, []string{
		"finanzas presupuesto ahorro",
		"fútbol partido gol",
		"música concierto guitarra",
		"viaje playa verano",
	})

	a, err := newEngine(99).Cluster(context.Background(), records, 2)
	require.NoError(t, err)
	b, err := newEngine(99).Cluster(context.Background(), records, 2)
	require.NoError(t, err)

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].MemberIDs, b[i].MemberIDs)
	}
}

func TestClusterLabels(t *testing.T) {
	e := newEngine(11)
	records := embeddedRecords(t, []string{
		"presupuesto presupuesto finanzas ahorro importante",
		"presupuesto finanzas ahorro familiar",
	})

	clusters, err := e.Cluster(context.Background(), records, 1)
	require.NoError(t, err)
	require.Len(t, clusters, 1)

	label := clusters[0].Label
	assert.Contains(t, label, "presupuesto")
	assert.NotEqual(t, "Cluster 1", label)
}

func TestClusterLabelFallback(t *testing.T) {
	e := newEngine(11)
	records := []*store.Record{
		rec("a", []float32{1, 0, 0}, "el y de la"), // nothing survives filtering
	}

	clusters, err := e.Cluster(context.Background(), records, 1)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, "Cluster 1", clusters[0].Label)
}

func TestClusterDescriptions(t *testing.T) {
	e := newEngine(13)
	records := []*store.Record{
		{ID: "a", Vector: []float32{1, 0, 0}, Content: "texto corto", Kind: store.KindText},
		{ID: "b", Vector: []float32{1, 0.05, 0}, Content: "documento largo aquí", Kind: store.KindDocument},
	}

	clusters, err := e.Cluster(context.Background(), records, 1)
	require.NoError(t, err)
	require.Len(t, clusters, 1)

	desc := clusters[0].Description
	assert.Contains(t, desc, "2 items")
	assert.Contains(t, desc, "document")
	assert.Contains(t, desc, "text")
}

func TestFindSimilarRanksAndCaps(t *testing.T) {
	e := newEngine(17)
	records := []*store.Record{
		rec("x1", []float32{1, 0, 0}, "eje x uno"),
		rec("x2", []float32{1, 0.1, 0}, "eje x dos"),
		rec("y1", []float32{0, 1, 0}, "eje y uno"),
		rec("y2", []float32{0.1, 1, 0}, "eje y dos"),
		rec("z1", []float32{0, 0, 1}, "eje z uno"),
		rec("z2", []float32{0, 0.1, 1}, "eje z dos"),
		rec("w1", []float32{0.5, 0.5, 0.5}, "diagonal uno"),
		rec("w2", []float32{0.5, 0.5, 0.6}, "diagonal dos"),
	}

	_, err := e.Cluster(context.Background(), records, 4)
	require.NoError(t, err)

	matches := e.FindSimilar([]float32{1, 0, 0})
	require.NotEmpty(t, matches)
	assert.LessOrEqual(t, len(matches), 3)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Similarity, matches[i].Similarity)
	}
}

func TestNewRunSupersedesCache(t *testing.T) {
	e := newEngine(19)
	records := []*store.Record{
		rec("a", []float32{1, 0, 0}, "uno"),
		rec("b", []float32{0, 1, 0}, "dos"),
	}

	first, err := e.Cluster(context.Background(), records, 2)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	_, err = e.Cluster(context.Background(), records, 1)
	require.NoError(t, err)

	_, ok := e.CachedCluster(first[0].ID)
	assert.False(t, ok, "previous run's clusters must be superseded")
}
