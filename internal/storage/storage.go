// Package storage defines the content-addressable blob store the
// engine keeps dataset bytes and stage artifacts in, keyed by
// (dataset, version) and (dataset, version, artifact name).
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound indicates no blob exists at the requested key.
var ErrNotFound = errors.New("blob not found")

// Store is the blob store collaborator.
type Store interface {
	Get(ctx context.Context, datasetID, versionID int64) ([]byte, error)
	Put(ctx context.Context, datasetID, versionID int64, data []byte) (string, error)
	GetArtifact(ctx context.Context, datasetID, versionID int64, name string) ([]byte, error)
	PutArtifact(ctx context.Context, datasetID, versionID int64, name string, data []byte) (string, error)
}

// DataKey is the canonical object key for a dataset version's bytes.
func DataKey(datasetID, versionID int64) string {
	return fmt.Sprintf("datasets/%d/%d/data.csv", datasetID, versionID)
}

// ArtifactKey is the canonical object key for a stage artifact.
func ArtifactKey(datasetID, versionID int64, name string) string {
	return fmt.Sprintf("datasets/%d/%d/artifacts/%s", datasetID, versionID, name)
}

// Memory is an in-process Store for tests and local development.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: map[string][]byte{}}
}

func (m *Memory) Get(_ context.Context, datasetID, versionID int64) ([]byte, error) {
	return m.get(DataKey(datasetID, versionID))
}

func (m *Memory) Put(_ context.Context, datasetID, versionID int64, data []byte) (string, error) {
	return m.put(DataKey(datasetID, versionID), data)
}

func (m *Memory) GetArtifact(_ context.Context, datasetID, versionID int64, name string) ([]byte, error) {
	return m.get(ArtifactKey(datasetID, versionID, name))
}

func (m *Memory) PutArtifact(_ context.Context, datasetID, versionID int64, name string, data []byte) (string, error) {
	return m.put(ArtifactKey(datasetID, versionID, name), data)
}

func (m *Memory) get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) put(key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	m.blobs[key] = stored
	return key, nil
}
