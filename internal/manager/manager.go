// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

// Package manager is the façade external consumers use: it turns raw
// content into embeddings, delegates storage, and enriches search and
// organize results with clustering context.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/semvault-dev/semvault/internal/cluster"
	"github.com/semvault-dev/semvault/internal/embedding"
	"github.com/semvault-dev/semvault/internal/store"
	semerr "github.com/semvault-dev/semvault/pkg/errors"
	"github.com/semvault-dev/semvault/pkg/health"
)

const (
	// similarContentThreshold is the looser cutoff used when ranking
	// neighbors of an existing record.
	similarContentThreshold = 0.3
	// organizeFetchLimit bounds how many records one organize run pulls.
	organizeFetchLimit = 10000
)

// Item is one entry of a batch insert.
type Item struct {
	Content  string
	Metadata store.Metadata
	Kind     store.Kind
}

// SearchOptions tune a semantic search.
type SearchOptions struct {
	Limit     int
	Threshold *float64
	Filters   store.Metadata
	OwnerID   string
}

// SearchMatch is one enriched search hit.
type SearchMatch struct {
	Record          *store.Record   `json:"record"`
	Score           float64         `json:"score"`
	Clusters        []cluster.Match `json:"clusters,omitempty"`
	SemanticContext string          `json:"semantic_context,omitempty"`
}

// ContentUpdate is a partial content mutation. Nil fields are ignored;
// the updated timestamp is always refreshed.
type ContentUpdate struct {
	Content  *string
	Metadata store.Metadata
}

// OrganizeStats counts the outcome of an organize run.
type OrganizeStats struct {
	TotalItems       int `json:"total_items"`
	ClusteredItems   int `json:"clustered_items"`
	UnclusteredItems int `json:"unclustered_items"`
}

// Organization is the result of organizing an owner's content.
type Organization struct {
	Clusters    []*cluster.SemanticCluster `json:"clusters"`
	Unclustered []string                   `json:"unclustered"`
	Suggestions []*cluster.Suggestion      `json:"suggestions"`
	Stats       OrganizeStats              `json:"stats"`
}

// OwnerStats summarizes one owner's content.
type OwnerStats struct {
	OwnerID    string             `json:"owner_id"`
	TotalItems int                `json:"total_items"`
	ByKind     map[store.Kind]int `json:"by_kind"`
}

// StatsReport combines provider-level and per-owner statistics.
type StatsReport struct {
	Store store.Stats `json:"store"`
	Owner *OwnerStats `json:"owner,omitempty"`
}

// Manager wires the embedding model, the record store, and the
// clustering engine behind one API. Construct it explicitly and pass
// it by reference; there is no package-level instance.
type Manager struct {
	model  embedding.Model
	store  *store.Store
	engine *cluster.Engine
	health *health.Tracker

	initOnce sync.Once
	initErr  error
}

// New creates a manager. Call Init (or any operation, which
// initializes lazily) before relying on persisted state, and Close
// when done.
func New(model embedding.Model, st *store.Store, eng *cluster.Engine) *Manager {
	return &Manager{model: model, store: st, engine: eng, health: health.NewTracker()}
}

// Init loads the persisted snapshot. Idempotent; every public
// operation calls it lazily, so explicit use is optional but lets
// callers surface load problems early.
func (m *Manager) Init(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.initErr = m.store.Initialize(ctx)
	})
	return m.initErr
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}

// AddContent embeds content and stores the record, returning its id.
func (m *Manager) AddContent(ctx context.Context, content string, metadata store.Metadata, kind store.Kind, ownerID string) (string, error) {
	if err := m.Init(ctx); err != nil {
		return "", err
	}

	result, err := m.model.Embed(ctx, content)
	if err != nil {
		return "", err
	}
	m.noteDegradation(result.Degradation)

	return m.store.Add(ctx, &store.Record{
		Vector:   result.Vector,
		Metadata: metadata,
		Content:  content,
		Kind:     kind,
		OwnerID:  ownerID,
	})
}

// AddMultipleContent embeds every item first, then stores the whole
// batch with a single persistence flush.
func (m *Manager) AddMultipleContent(ctx context.Context, items []Item, ownerID string) ([]string, error) {
	if err := m.Init(ctx); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []string{}, nil
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Content
	}

	results, err := m.model.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(results) != len(items) {
		return nil, semerr.Errorf(semerr.CodeEmbeddingResponseInvalid,
			"embedding batch returned %d vectors for %d items", len(results), len(items))
	}

	records := make([]*store.Record, len(items))
	for i, item := range items {
		m.noteDegradation(results[i].Degradation)
		records[i] = &store.Record{
			Vector:   results[i].Vector,
			Metadata: item.Metadata,
			Content:  item.Content,
			Kind:     item.Kind,
			OwnerID:  ownerID,
		}
	}

	return m.store.AddBatch(ctx, records)
}

// SemanticSearch embeds the query, folds the owner into the filter
// set, and enriches every hit with similar clusters and a one-line
// semantic context. Zero hits is an empty slice, never an error.
func (m *Manager) SemanticSearch(ctx context.Context, query string, opts SearchOptions) ([]SearchMatch, error) {
	if err := m.Init(ctx); err != nil {
		return nil, err
	}

	result, err := m.model.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	m.noteDegradation(result.Degradation)

	filters := opts.Filters.Clone()
	if opts.OwnerID != "" {
		if filters == nil {
			filters = store.Metadata{}
		}
		filters["owner_id"] = store.StringValue(opts.OwnerID)
	}

	hits, err := m.store.Search(ctx, store.Query{
		Vector:    result.Vector,
		Text:      query,
		Filters:   filters,
		Threshold: opts.Threshold,
		Limit:     opts.Limit,
	})
	if err != nil {
		return nil, err
	}

	matches := make([]SearchMatch, 0, len(hits))
	for _, hit := range hits {
		matches = append(matches, SearchMatch{
			Record:          hit.Record,
			Score:           hit.Score,
			Clusters:        m.engine.FindSimilar(hit.Record.Vector),
			SemanticContext: semanticContext(query, hit.Record.Content, hit.Score),
		})
	}
	return matches, nil
}

// OrganizeUserContent clusters everything the owner has stored and
// reports counts alongside reorganization suggestions.
func (m *Manager) OrganizeUserContent(ctx context.Context, ownerID string) (*Organization, error) {
	if err := m.Init(ctx); err != nil {
		return nil, err
	}

	var records []*store.Record
	for _, rec := range m.store.All(ctx) {
		if rec.OwnerID == ownerID {
			records = append(records, rec)
		}
		if len(records) >= organizeFetchLimit {
			break
		}
	}

	org, err := m.engine.Organize(ctx, records, organizeK(len(records)))
	if err != nil {
		return nil, err
	}

	out := &Organization{
		Clusters:    org.Clusters,
		Unclustered: org.Unclustered,
		Suggestions: org.Suggestions,
		Stats: OrganizeStats{
			TotalItems:       len(records),
			ClusteredItems:   len(records) - len(org.Unclustered),
			UnclusteredItems: len(org.Unclustered),
		},
	}
	if out.Clusters == nil {
		out.Clusters = []*cluster.SemanticCluster{}
	}
	return out, nil
}

// FindSimilarContent ranks neighbors of an existing record by its own
// vector, excluding the record itself.
func (m *Manager) FindSimilarContent(ctx context.Context, id string, limit int) ([]SearchMatch, error) {
	if err := m.Init(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	rec, ok := m.store.Get(ctx, id)
	if !ok {
		return nil, semerr.New(semerr.CodeStoreRecordNotFound, "content not found", semerr.FieldRecordID(id))
	}

	threshold := similarContentThreshold
	hits, err := m.store.Search(ctx, store.Query{
		Vector:    rec.Vector,
		Threshold: &threshold,
		Limit:     limit + 1, // the record itself is always its best match
	})
	if err != nil {
		return nil, err
	}

	matches := make([]SearchMatch, 0, limit)
	for _, hit := range hits {
		if hit.Record.ID == id {
			continue
		}
		if len(matches) == limit {
			break
		}
		matches = append(matches, SearchMatch{
			Record:          hit.Record,
			Score:           hit.Score,
			SemanticContext: semanticContext(rec.Content, hit.Record.Content, hit.Score),
		})
	}
	return matches, nil
}

// UpdateContent re-embeds only when the content actually changed and
// always refreshes the updated timestamp.
func (m *Manager) UpdateContent(ctx context.Context, id string, upd ContentUpdate) (bool, error) {
	if err := m.Init(ctx); err != nil {
		return false, err
	}

	rec, ok := m.store.Get(ctx, id)
	if !ok {
		return false, nil
	}

	patch := store.UpdatePatch{Metadata: upd.Metadata}
	if upd.Content != nil && *upd.Content != rec.Content {
		result, err := m.model.Embed(ctx, *upd.Content)
		if err != nil {
			return false, err
		}
		m.noteDegradation(result.Degradation)
		patch.Content = upd.Content
		patch.Vector = result.Vector
	}

	return m.store.Update(ctx, id, patch)
}

// DeleteContent removes a record, reporting whether it existed.
func (m *Manager) DeleteContent(ctx context.Context, id string) (bool, error) {
	if err := m.Init(ctx); err != nil {
		return false, err
	}
	return m.store.Delete(ctx, id)
}

// ContentStats reports store-level statistics, plus a per-owner
// breakdown when ownerID is non-empty.
func (m *Manager) ContentStats(ctx context.Context, ownerID string) (*StatsReport, error) {
	if err := m.Init(ctx); err != nil {
		return nil, err
	}

	stats, err := m.store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	report := &StatsReport{Store: stats}
	if ownerID != "" {
		owner := &OwnerStats{OwnerID: ownerID, ByKind: map[store.Kind]int{}}
		for _, rec := range m.store.All(ctx) {
			if rec.OwnerID != ownerID {
				continue
			}
			owner.TotalItems++
			owner.ByKind[rec.Kind]++
		}
		report.Owner = owner
	}
	return report, nil
}

// EmbeddingHealth reports the embedding provider's degradation state.
func (m *Manager) EmbeddingHealth() health.Metrics {
	return m.health.Snapshot()
}

func (m *Manager) noteDegradation(d embedding.Degradation) {
	if d != embedding.DegradationNone {
		m.health.Record(string(d))
		slog.Info("embedding degraded to local model", "model", m.model.Name(), "reason", string(d))
	}
}

// organizeK picks a cluster count proportional to the content volume.
func organizeK(n int) int {
	if n <= 1 {
		return 1
	}
	k := int(math.Ceil(float64(n) / 4))
	if k > 10 {
		k = 10
	}
	return k
}

// semanticContext explains a hit in one line: the overlapping words
// when any exist, otherwise the similarity percentage.
func semanticContext(query, content string, score float64) string {
	qWords := strings.Fields(strings.ToLower(query))
	cWords := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(content)) {
		cWords[w] = struct{}{}
	}

	var overlap []string
	seen := map[string]struct{}{}
	for _, w := range qWords {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := cWords[w]; ok {
			overlap = append(overlap, w)
		}
	}

	if len(overlap) > 0 {
		sort.Strings(overlap)
		if len(overlap) > 3 {
			overlap = overlap[:3]
		}
		return "matches on " + strings.Join(overlap, ", ")
	}
	return fmt.Sprintf("%.0f%% similar", score*100)
}
