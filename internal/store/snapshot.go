// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package store

import (
	"context"
	"sync"

	semerr "github.com/semvault-dev/semvault/pkg/errors"
)

// SnapshotKey is the logical table the store persists under.
const SnapshotKey = "embeddings"

// Snapshotter is the durable key/value collaborator the store writes
// full JSON snapshots to. Implementations are expected to be cheap to
// read once at initialization and written after every mutation.
type Snapshotter interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// SnapshotterFactory creates a backend given the data directory path.
type SnapshotterFactory func(dataPath string) (Snapshotter, error)

var (
	snapshotFactories = map[string]SnapshotterFactory{}
	snapshotMu        sync.RWMutex
)

// RegisterSnapshotter registers a named snapshot backend. Backend
// packages call this from init(). Goroutine-safe.
func RegisterSnapshotter(name string, factory SnapshotterFactory) {
	snapshotMu.Lock()
	defer snapshotMu.Unlock()
	snapshotFactories[name] = factory
}

// NewSnapshotter creates the named backend, defaulting to "memory".
func NewSnapshotter(backend, dataPath string) (Snapshotter, error) {
	if backend == "" {
		backend = "memory"
	}

	snapshotMu.RLock()
	factory, ok := snapshotFactories[backend]
	snapshotMu.RUnlock()
	if !ok {
		return nil, semerr.Errorf(semerr.CodeStoreBackendUnsupported, "unsupported snapshot backend: %q", backend)
	}

	return factory(dataPath)
}

// memorySnapshotter keeps snapshots in process memory. Useful for
// tests and ephemeral deployments.
type memorySnapshotter struct {
	mu   sync.RWMutex
	data map[string]string
}

func init() {
	RegisterSnapshotter("memory", func(string) (Snapshotter, error) {
		return NewMemorySnapshotter(), nil
	})
}

// NewMemorySnapshotter returns an empty in-process snapshot store.
func NewMemorySnapshotter() Snapshotter {
	return &memorySnapshotter{data: map[string]string{}}
}

func (m *memorySnapshotter) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memorySnapshotter) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memorySnapshotter) Close() error { return nil }
