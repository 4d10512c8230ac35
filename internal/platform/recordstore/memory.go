package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore keeps nodes in process memory. It backs tests and the
// development server when no database is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nodes: make(map[string]json.RawMessage)}
}

func (m *MemoryStore) subtree(path string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)
	prefix := path + "/"
	for p, doc := range m.nodes {
		if p == path || strings.HasPrefix(p, prefix) {
			out[p] = doc
		}
	}
	return out
}

func (m *MemoryStore) Get(_ context.Context, path string) (json.RawMessage, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return assemble(p, m.subtree(p))
}

func (m *MemoryStore) Set(_ context.Context, path string, v any) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for sp := range m.subtree(p) {
		delete(m.nodes, sp)
	}
	m.nodes[p] = raw
	return nil
}

func (m *MemoryStore) Update(_ context.Context, path string, partial any) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	raw, err := encodeObject(partial)
	if err != nil {
		return err
	}
	var patch map[string]json.RawMessage
	if err := json.Unmarshal(raw, &patch); err != nil {
		return fmt.Errorf("decode update: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	merged := make(map[string]json.RawMessage)
	if existing, ok := m.nodes[p]; ok {
		if err := json.Unmarshal(existing, &merged); err != nil {
			merged = make(map[string]json.RawMessage)
		}
	}
	for k, v := range patch {
		merged[k] = v
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p, err)
	}
	m.nodes[p] = out
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, path string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for sp := range m.subtree(p) {
		delete(m.nodes, sp)
	}
	return nil
}

func (m *MemoryStore) Keys(_ context.Context, path string) ([]string, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var paths []string
	for sp := range m.subtree(p) {
		paths = append(paths, sp)
	}
	return childNames(p, paths), nil
}
