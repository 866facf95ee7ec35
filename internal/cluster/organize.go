// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package cluster

import (
	"context"
	"fmt"
	"sort"

	"github.com/semvault-dev/semvault/internal/store"
	"github.com/semvault-dev/semvault/internal/vecmath"
)

const (
	// unclusteredThreshold marks records whose best-cluster similarity
	// is too weak for a confident assignment.
	unclusteredThreshold = 0.6
	// mergeSimilarity is the centroid similarity above which two
	// clusters are suggested for merging.
	mergeSimilarity = 0.8
	// splitMemberCount and splitConfidence gate split suggestions.
	splitMemberCount = 10
	splitConfidence  = 0.6
	// maxSuggestions caps the suggestion list.
	maxSuggestions = 5
)

// SuggestionType enumerates reorganization suggestion kinds.
type SuggestionType string

const (
	SuggestionMerge SuggestionType = "merge"
	SuggestionSplit SuggestionType = "split"
)

// Suggestion is one reorganization recommendation.
type Suggestion struct {
	Type       SuggestionType `json:"type"`
	ClusterIDs []string       `json:"cluster_ids"`
	Message    string         `json:"message"`
	Confidence float64        `json:"confidence"`
}

// Organization is the result of organizing a content set.
type Organization struct {
	Clusters    []*SemanticCluster `json:"clusters"`
	Unclustered []string           `json:"unclustered"`
	Suggestions []*Suggestion      `json:"suggestions"`
}

// Organize clusters the records, flags weakly assigned ones as
// unclustered, and derives merge/split suggestions. An empty input
// yields an empty, valid result.
func (e *Engine) Organize(ctx context.Context, records []*store.Record, k int) (*Organization, error) {
	clusters, err := e.Cluster(ctx, records, k)
	if err != nil {
		return nil, err
	}
	if len(clusters) == 0 {
		return &Organization{Unclustered: []string{}, Suggestions: []*Suggestion{}}, nil
	}

	var unclustered []string
	for _, rec := range records {
		best := 0.0
		for _, c := range clusters {
			if sim := vecmath.Cosine(rec.Vector, c.Centroid); sim > best {
				best = sim
			}
		}
		if best < unclusteredThreshold {
			unclustered = append(unclustered, rec.ID)
		}
	}
	if unclustered == nil {
		unclustered = []string{}
	}

	return &Organization{
		Clusters:    clusters,
		Unclustered: unclustered,
		Suggestions: suggestions(clusters),
	}, nil
}

func suggestions(clusters []*SemanticCluster) []*Suggestion {
	out := []*Suggestion{}

	for i := 0; i < len(clusters); i++ {
		for j := i + 1; j < len(clusters); j++ {
			sim := vecmath.Cosine(clusters[i].Centroid, clusters[j].Centroid)
			if sim <= mergeSimilarity {
				continue
			}
			out = append(out, &Suggestion{
				Type:       SuggestionMerge,
				ClusterIDs: []string{clusters[i].ID, clusters[j].ID},
				Message: fmt.Sprintf("Clusters %q and %q are %.0f%% similar and could be merged",
					clusters[i].Label, clusters[j].Label, sim*100),
				Confidence: sim,
			})
		}
	}

	for _, c := range clusters {
		if len(c.MemberIDs) <= splitMemberCount || c.Confidence >= splitConfidence {
			continue
		}
		out = append(out, &Suggestion{
			Type:       SuggestionSplit,
			ClusterIDs: []string{c.ID},
			Message: fmt.Sprintf("Cluster %q holds %d loosely related items and could be split",
				c.Label, len(c.MemberIDs)),
			Confidence: 1 - c.Confidence,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}
