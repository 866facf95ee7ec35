// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

// Package cluster partitions embeddings into labeled semantic clusters
// using a cosine-similarity k-means variant.
package cluster

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/semvault-dev/semvault/internal/store"
	"github.com/semvault-dev/semvault/internal/vecmath"
)

// DefaultMaxIterations bounds a clustering run. There is no other
// cancellation mechanism; the cap is the only bound on runtime.
const DefaultMaxIterations = 100

// SemanticCluster is one labeled partition of a clustering run.
type SemanticCluster struct {
	ID          string    `json:"id"`
	Centroid    []float32 `json:"centroid"`
	MemberIDs   []string  `json:"member_ids"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	Confidence  float64   `json:"confidence"`
	CreatedAt   time.Time `json:"created_at"`
}

// Match pairs a cached cluster with its similarity to a probe vector.
type Match struct {
	Cluster    *SemanticCluster `json:"cluster"`
	Similarity float64          `json:"similarity"`
}

// Config tunes the engine. A nil Rand gets a time-seeded source; tests
// inject a fixed seed for reproducible runs.
type Config struct {
	MaxIterations int
	Rand          *rand.Rand
}

// Engine runs clustering and caches the clusters of the latest run for
// similarity lookups. A new run supersedes the cached set; clusters are
// never incrementally updated.
type Engine struct {
	maxIter int
	rng     *rand.Rand
	rngMu   sync.Mutex

	mu    sync.RWMutex
	cache map[string]*SemanticCluster
}

// NewEngine creates a clustering engine.
func NewEngine(cfg Config) *Engine {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		maxIter: cfg.MaxIterations,
		rng:     cfg.Rand,
		cache:   map[string]*SemanticCluster{},
	}
}

// Cluster partitions records into at most k clusters. Every record
// lands in exactly one returned cluster. An empty input returns an
// empty list with no error.
func (e *Engine) Cluster(ctx context.Context, records []*store.Record, k int) ([]*SemanticCluster, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if k < 1 {
		k = 1
	}

	var clusters []*SemanticCluster
	if len(records) < k {
		clusters = e.singletons(records)
	} else {
		clusters = e.kmeans(ctx, records, k)
	}

	for i, c := range clusters {
		c.Label = makeLabel(memberRecords(records, c.MemberIDs), i)
		c.Description = makeDescription(memberRecords(records, c.MemberIDs))
	}

	e.mu.Lock()
	e.cache = make(map[string]*SemanticCluster, len(clusters))
	for _, c := range clusters {
		e.cache[c.ID] = c
	}
	e.mu.Unlock()

	return clusters, nil
}

// FindSimilar ranks the cached clusters by centroid similarity to the
// probe vector and returns the top three.
func (e *Engine) FindSimilar(vector []float32) []Match {
	e.mu.RLock()
	matches := make([]Match, 0, len(e.cache))
	for _, c := range e.cache {
		matches = append(matches, Match{Cluster: c, Similarity: vecmath.Cosine(vector, c.Centroid)})
	}
	e.mu.RUnlock()

	sortMatches(matches)
	if len(matches) > 3 {
		matches = matches[:3]
	}
	return matches
}

// CachedCluster returns a cached cluster by id.
func (e *Engine) CachedCluster(id string) (*SemanticCluster, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.cache[id]
	return c, ok
}

func (e *Engine) singletons(records []*store.Record) []*SemanticCluster {
	now := time.Now().UTC()
	clusters := make([]*SemanticCluster, 0, len(records))
	for _, rec := range records {
		centroid := make([]float32, len(rec.Vector))
		copy(centroid, rec.Vector)
		clusters = append(clusters, &SemanticCluster{
			ID:         uuid.NewString(),
			Centroid:   vecmath.Normalize(centroid),
			MemberIDs:  []string{rec.ID},
			Confidence: 1.0,
			CreatedAt:  now,
		})
	}
	return clusters
}

// kmeans assigns every record to its highest-cosine centroid, then
// recomputes centroids as normalized member means, stopping early when
// no assignment changes between rounds.
func (e *Engine) kmeans(ctx context.Context, records []*store.Record, k int) []*SemanticCluster {
	dims := len(records[0].Vector)

	centroids := make([][]float32, k)
	for i := range centroids {
		centroids[i] = e.randomUnitVector(dims)
	}

	assignments := make([]int, len(records))
	for i := range assignments {
		assignments[i] = -1
	}

	for iter := 0; iter < e.maxIter; iter++ {
		if ctx.Err() != nil {
			break
		}

		changed := false
		for i, rec := range records {
			best, bestSim := 0, vecmath.Cosine(rec.Vector, centroids[0])
			for c := 1; c < k; c++ {
				if sim := vecmath.Cosine(rec.Vector, centroids[c]); sim > bestSim {
					best, bestSim = c, sim
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		// Reseed any empty cluster with the worst-fitting record so a
		// full run keeps k non-empty partitions whenever k <= n.
		if e.reseedEmpty(records, centroids, assignments, k) {
			changed = true
		}

		for c := 0; c < k; c++ {
			var members [][]float32
			for i, a := range assignments {
				if a == c {
					members = append(members, records[i].Vector)
				}
			}
			if len(members) > 0 {
				centroids[c] = vecmath.Normalize(vecmath.Mean(members, dims))
			}
		}

		if !changed {
			break
		}
	}

	now := time.Now().UTC()
	byCluster := make(map[int][]string, k)
	for i, a := range assignments {
		byCluster[a] = append(byCluster[a], records[i].ID)
	}

	clusters := make([]*SemanticCluster, 0, k)
	for c := 0; c < k; c++ {
		ids := byCluster[c]
		if len(ids) == 0 {
			continue
		}
		clusters = append(clusters, &SemanticCluster{
			ID:         uuid.NewString(),
			Centroid:   centroids[c],
			MemberIDs:  ids,
			Confidence: meanPairwiseSimilarity(memberRecords(records, ids)),
			CreatedAt:  now,
		})
	}
	return clusters
}

func (e *Engine) reseedEmpty(records []*store.Record, centroids [][]float32, assignments []int, k int) bool {
	counts := make([]int, k)
	for _, a := range assignments {
		counts[a]++
	}

	moved := false
	for c := 0; c < k; c++ {
		if counts[c] > 0 {
			continue
		}

		worst, worstSim := -1, 2.0
		for i, a := range assignments {
			if counts[a] <= 1 {
				continue
			}
			if sim := vecmath.Cosine(records[i].Vector, centroids[a]); sim < worstSim {
				worst, worstSim = i, sim
			}
		}
		if worst < 0 {
			continue
		}

		counts[assignments[worst]]--
		assignments[worst] = c
		counts[c]++
		centroid := make([]float32, len(records[worst].Vector))
		copy(centroid, records[worst].Vector)
		centroids[c] = centroid
		moved = true
	}
	return moved
}

func (e *Engine) randomUnitVector(dims int) []float32 {
	e.rngMu.Lock()
	v := make([]float32, dims)
	for i := range v {
		v[i] = float32(e.rng.NormFloat64())
	}
	e.rngMu.Unlock()
	return vecmath.Normalize(v)
}

// meanPairwiseSimilarity is the cluster confidence: average cosine over
// all member pairs, 1.0 for singletons. The O(n²) scan is fine at the
// cluster sizes this engine sees.
func meanPairwiseSimilarity(members []*store.Record) float64 {
	if len(members) <= 1 {
		return 1.0
	}

	var sum float64
	pairs := 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			sum += vecmath.Cosine(members[i].Vector, members[j].Vector)
			pairs++
		}
	}
	return sum / float64(pairs)
}

func memberRecords(records []*store.Record, ids []string) []*store.Record {
	byID := make(map[string]*store.Record, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	out := make([]*store.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
}
