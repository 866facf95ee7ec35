// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package health

import (
	"sync"
	"time"
)

// Metrics exposes the current state of the embedding provider for
// monitoring and operator visibility. All fields are point-in-time
// snapshots safe to serialize to JSON.
type Metrics struct {
	DegradedCount  int64      `json:"degraded_count"`
	LastDegradedAt *time.Time `json:"last_degraded_at,omitempty"`
	LastReason     string     `json:"last_reason,omitempty"`
	Healthy        bool       `json:"healthy"`
}

// Tracker accumulates embedding degradation events. Safe for
// concurrent use.
type Tracker struct {
	mu     sync.Mutex
	count  int64
	last   time.Time
	reason string
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Record notes one degradation event with its reason.
func (t *Tracker) Record(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	t.last = time.Now().UTC()
	t.reason = reason
}

// Snapshot returns the current metrics. Healthy means no degradation
// has been recorded since startup.
func (t *Tracker) Snapshot() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := Metrics{
		DegradedCount: t.count,
		LastReason:    t.reason,
		Healthy:       t.count == 0,
	}
	if !t.last.IsZero() {
		at := t.last
		m.LastDegradedAt = &at
	}
	return m
}
