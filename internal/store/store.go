// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

// Package store owns the embedding records: an in-memory exact-scan
// index backed by a pluggable durable snapshot.
//
// Persistence is a full JSON snapshot written after every mutating
// call. That is a deliberate scalability ceiling; the first target for
// a larger deployment is an incremental log or an indexed backend, not
// a silent behavior change here.
package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/semvault-dev/semvault/internal/vecmath"
	semerr "github.com/semvault-dev/semvault/pkg/errors"
)

const (
	// DefaultThreshold drops results scoring below it when the query
	// does not set its own.
	DefaultThreshold = 0.5
	// DefaultLimit caps result counts when the query does not.
	DefaultLimit = 10
)

// Store is the vector record store. In-memory state is the source of
// truth during a session; snapshot writes are best effort.
type Store struct {
	mu          sync.RWMutex
	records     map[string]*Record
	order       []string // insertion order, keeps ranking ties stable
	snap        Snapshotter
	dims        int
	initialized bool
}

// New creates a store over the given snapshot backend. dims is the
// dimension every stored vector is expected to have.
func New(snap Snapshotter, dims int) *Store {
	return &Store{
		records: map[string]*Record{},
		snap:    snap,
		dims:    dims,
	}
}

// Initialize loads the persisted snapshot into memory. It is
// idempotent; a malformed or missing snapshot is logged and treated as
// an empty store, never as a fatal error.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.initialized = true

	raw, ok, err := s.snap.Get(ctx, SnapshotKey)
	if err != nil {
		slog.Warn("snapshot load failed, starting empty", "key", SnapshotKey, "error", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var loaded []*Record
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		slog.Warn("snapshot malformed, starting empty", "key", SnapshotKey, "error", err)
		return nil
	}

	for _, rec := range loaded {
		if rec == nil || rec.ID == "" {
			continue
		}
		if _, exists := s.records[rec.ID]; exists {
			continue
		}
		s.records[rec.ID] = rec
		s.order = append(s.order, rec.ID)
	}

	slog.Info("snapshot loaded", "records", len(s.records))
	return nil
}

// Add inserts a record and persists the snapshot. A missing ID is
// assigned; zero timestamps are set to now.
func (s *Store) Add(ctx context.Context, rec *Record) (string, error) {
	if err := validateRecord(rec); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.insertLocked(rec)
	s.mu.Unlock()

	s.persist(ctx)
	return rec.ID, nil
}

// AddBatch inserts all records and persists once at the end.
func (s *Store) AddBatch(ctx context.Context, recs []*Record) ([]string, error) {
	for _, rec := range recs {
		if err := validateRecord(rec); err != nil {
			return nil, err
		}
	}

	ids := make([]string, 0, len(recs))
	s.mu.Lock()
	for _, rec := range recs {
		s.insertLocked(rec)
		ids = append(ids, rec.ID)
	}
	s.mu.Unlock()

	if len(recs) > 0 {
		s.persist(ctx)
	}
	return ids, nil
}

// Get returns a copy of the record, if present.
func (s *Store) Get(_ context.Context, id string) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Search scores every stored record against the query and returns the
// ranked survivors. A query carrying neither a vector nor text is a
// hard failure; everything else, including zero matches, is an empty
// result, not an error.
func (s *Store) Search(_ context.Context, q Query) ([]SearchResult, error) {
	text := strings.TrimSpace(q.Text)
	if len(q.Vector) == 0 && text == "" {
		return nil, semerr.New(semerr.CodeStoreQueryInvalid, "search query needs a vector or text")
	}

	threshold := DefaultThreshold
	if q.Threshold != nil {
		threshold = *q.Threshold
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var queryWords map[string]struct{}
	if len(q.Vector) == 0 {
		queryWords = wordSet(text)
	}

	s.mu.RLock()
	results := make([]SearchResult, 0, limit)
	for _, id := range s.order {
		rec := s.records[id]
		if !matchesFilters(rec, q.Filters) {
			continue
		}

		var score float64
		if len(q.Vector) > 0 {
			score = vecmath.Cosine(q.Vector, rec.Vector)
		} else {
			score = jaccard(queryWords, wordSet(rec.Content))
		}

		if score < threshold {
			continue
		}
		results = append(results, SearchResult{Record: rec.Clone(), Score: score})
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes a record. Returns false when the id was not present.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	if _, ok := s.records[id]; !ok {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.records, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.persist(ctx)
	return true, nil
}

// Update applies a partial mutation and bumps UpdatedAt. Returns false
// when the id was not present.
func (s *Store) Update(ctx context.Context, id string, patch UpdatePatch) (bool, error) {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}

	if patch.Vector != nil {
		rec.Vector = patch.Vector
	}
	if patch.Content != nil {
		rec.Content = *patch.Content
	}
	if patch.Metadata != nil {
		rec.Metadata = patch.Metadata.Clone()
	}
	rec.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	s.persist(ctx)
	return true, nil
}

// Stats reports record count, dimensionality, and an approximation of
// resident memory.
func (s *Store) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bytes int64
	for _, rec := range s.records {
		bytes += int64(len(rec.Vector))*4 + int64(len(rec.Content)) + int64(len(rec.ID))
		for k, v := range rec.Metadata {
			bytes += int64(len(k)) + int64(len(v.Str)) + 16
		}
		bytes += 96 // struct and bookkeeping overhead
	}

	return Stats{
		Count:       len(s.records),
		Dimensions:  s.dims,
		MemoryBytes: bytes,
	}, nil
}

// All returns copies of every stored record in insertion order.
func (s *Store) All(_ context.Context) []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].Clone())
	}
	return out
}

// Close releases the snapshot backend.
func (s *Store) Close() error {
	return s.snap.Close()
}

func (s *Store) insertLocked(rec *Record) {
	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	if rec.Kind == "" {
		rec.Kind = KindText
	}

	if _, exists := s.records[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = rec.Clone()
}

// persist writes the full snapshot. A write failure is logged and the
// in-memory mutation stands: memory is authoritative for the session.
func (s *Store) persist(ctx context.Context) {
	s.mu.RLock()
	recs := make([]*Record, 0, len(s.order))
	for _, id := range s.order {
		recs = append(recs, s.records[id])
	}
	raw, err := json.Marshal(recs)
	s.mu.RUnlock()

	if err != nil {
		slog.Warn("snapshot encode failed", "key", SnapshotKey, "error", err)
		return
	}
	if err := s.snap.Set(ctx, SnapshotKey, string(raw)); err != nil {
		slog.Warn("snapshot write failed, keeping in-memory state", "key", SnapshotKey, "error", err)
	}
}

func validateRecord(rec *Record) error {
	if rec == nil {
		return semerr.New(semerr.CodeStoreInvalidInput, "record is nil")
	}
	if len(rec.Vector) == 0 {
		return semerr.New(semerr.CodeStoreInvalidInput, "record has no vector", semerr.FieldRecordID(rec.ID))
	}
	return nil
}

// matchesFilters applies every filter as an exact-match predicate. The
// reserved owner keys compare against the record's owner field.
func matchesFilters(rec *Record, filters Metadata) bool {
	for key, want := range filters {
		if key == "owner_id" || key == "ownerId" {
			if want.Kind != ValueKindString || rec.OwnerID != want.Str {
				return false
			}
			continue
		}

		got, ok := rec.Metadata[key]
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

// jaccard computes word-set overlap, the intentionally coarser
// text-only fallback for queries without a vector.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}

	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
