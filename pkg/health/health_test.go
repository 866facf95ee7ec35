// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package health_test

import (
	"testing"

	"github.com/semvault-dev/semvault/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerStartsHealthy(t *testing.T) {
	m := health.NewTracker().Snapshot()
	assert.True(t, m.Healthy)
	assert.Zero(t, m.DegradedCount)
	assert.Nil(t, m.LastDegradedAt)
	assert.Empty(t, m.LastReason)
}

func TestTrackerRecordsDegradations(t *testing.T) {
	tr := health.NewTracker()
	tr.Record("remote_timeout")
	tr.Record("remote_unavailable")

	m := tr.Snapshot()
	assert.False(t, m.Healthy)
	assert.Equal(t, int64(2), m.DegradedCount)
	assert.Equal(t, "remote_unavailable", m.LastReason)
	require.NotNil(t, m.LastDegradedAt)
	assert.False(t, m.LastDegradedAt.IsZero())
}
