package store

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"weather-pipeline/internal/weather"
)

// Memory is a concurrency-safe in-memory implementation of the snapshot and
// table stores, used by tests and available as a drop-in substitute for the
// filesystem store.
type Memory struct {
	mu        sync.RWMutex
	snapshots map[string][]json.RawMessage
	tables    map[string][]weather.FlatRecord
	artifacts map[string][]byte
	scores    []weather.ScoreEntry
}

var (
	_ weather.SnapshotStore = (*Memory)(nil)
	_ weather.TableStore    = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		snapshots: make(map[string][]json.RawMessage),
		tables:    make(map[string][]weather.FlatRecord),
		artifacts: make(map[string][]byte),
	}
}

func (s *Memory) WriteSnapshot(stamp string, payloads []json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[stamp] = append([]json.RawMessage(nil), payloads...)
	return nil
}

func (s *Memory) ListSnapshots() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stems := make([]string, 0, len(s.snapshots))
	for stamp := range s.snapshots {
		stems = append(stems, stamp)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(stems)))
	return stems, nil
}

func (s *Memory) ReadSnapshot(stem string) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payloads, ok := s.snapshots[stem]
	if !ok {
		return nil, fmt.Errorf("snapshot %s: %w", stem, fs.ErrNotExist)
	}
	return payloads, nil
}

func (s *Memory) WriteTable(name string, rows []weather.FlatRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = append([]weather.FlatRecord(nil), rows...)
	return nil
}

func (s *Memory) ReadTable(name string) ([]weather.FlatRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %s: %w", name, fs.ErrNotExist)
	}
	return rows, nil
}

func (s *Memory) TablePath(name string) string {
	return name
}

func (s *Memory) AppendScore(entry weather.ScoreEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = append(s.scores, entry)
	return nil
}

func (s *Memory) WriteArtifact(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[name] = append([]byte(nil), data...)
	return nil
}

// Artifact returns the stored artifact bytes, for assertions in tests.
func (s *Memory) Artifact(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.artifacts[name]
	return data, ok
}

// Scores returns a copy of the recorded ledger entries.
func (s *Memory) Scores() []weather.ScoreEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]weather.ScoreEntry(nil), s.scores...)
}
