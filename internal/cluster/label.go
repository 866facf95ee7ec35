// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package cluster

import (
	"fmt"
	"sort"
	"strings"

	"github.com/semvault-dev/semvault/internal/store"
)

// stopwords covers the English and Spanish filler the labeler drops
// before counting term frequency.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "that": {}, "this": {}, "with": {},
	"from": {}, "they": {}, "have": {}, "been": {}, "what": {}, "about": {},
	"which": {}, "their": {}, "there": {}, "would": {}, "could": {},
	"para": {}, "como": {}, "esta": {}, "este": {}, "pero": {}, "más": {},
	"todo": {}, "también": {}, "cuando": {}, "donde": {}, "sobre": {},
	"entre": {}, "hasta": {}, "desde": {}, "porque": {}, "muy": {},
}

// makeLabel builds a human-readable label from the three most frequent
// meaningful words across member content; index falls back to a
// generic name when nothing survives filtering.
func makeLabel(members []*store.Record, index int) string {
	counts := map[string]int{}
	for _, rec := range members {
		for _, word := range labelTokens(rec.Content) {
			counts[word]++
		}
	}

	if len(counts) == 0 {
		return fmt.Sprintf("Cluster %d", index+1)
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, ", ")
}

// makeDescription reports member count, distinct content kinds, and
// average content length.
func makeDescription(members []*store.Record) string {
	if len(members) == 0 {
		return "Empty cluster"
	}

	kinds := map[store.Kind]struct{}{}
	var totalLen int
	for _, rec := range members {
		kinds[rec.Kind] = struct{}{}
		totalLen += len(rec.Content)
	}

	kindNames := make([]string, 0, len(kinds))
	for k := range kinds {
		kindNames = append(kindNames, string(k))
	}
	sort.Strings(kindNames)

	return fmt.Sprintf("%d items across %s content, averaging %d characters",
		len(members), strings.Join(kindNames, "/"), totalLen/len(members))
}

// labelTokens keeps lower-cased words longer than three characters that
// are not stopwords.
func labelTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r >= 'à' && r <= 'ÿ')
	})

	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) <= 3 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		words = append(words, f)
	}
	return words
}
