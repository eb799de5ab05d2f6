package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
)

// MemoryStore keeps entities in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[Kind]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[Kind]map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, kind Kind, id string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[kind][id]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryStore) Apply(_ context.Context, ops []Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range ops {
		if op.Delete {
			delete(m.data[op.Kind], op.ID)
			continue
		}
		bucket, ok := m.data[op.Kind]
		if !ok {
			bucket = make(map[string][]byte)
			m.data[op.Kind] = bucket
		}
		v := make([]byte, len(op.Data))
		copy(v, op.Data)
		bucket[op.ID] = v
	}
	return nil
}

// Count returns the number of entities of kind.
func (m *MemoryStore) Count(kind Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[kind])
}

// IDs returns the sorted ids of every entity of kind.
func (m *MemoryStore) IDs(kind Kind) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.data[kind]))
	for id := range m.data[kind] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type snapshotLine struct {
	Kind Kind            `json:"kind"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Dump writes every entity as one JSON line, ordered by kind then id.
func (m *MemoryStore) Dump(w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	kinds := make([]string, 0, len(m.data))
	for k := range m.data {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	writer := bufio.NewWriter(w)
	for _, k := range kinds {
		bucket := m.data[Kind(k)]
		ids := make([]string, 0, len(bucket))
		for id := range bucket {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			line, err := json.Marshal(snapshotLine{Kind: Kind(k), ID: id, Data: bucket[id]})
			if err != nil {
				return fmt.Errorf("marshal snapshot line: %w", err)
			}
			if _, err := writer.Write(line); err != nil {
				return fmt.Errorf("write snapshot line: %w", err)
			}
			if err := writer.WriteByte('\n'); err != nil {
				return fmt.Errorf("write newline: %w", err)
			}
		}
	}
	return writer.Flush()
}

// Restore loads entities previously written by Dump.
func (m *MemoryStore) Restore(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var ops []Op
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var line snapshotLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			return fmt.Errorf("parse snapshot line %d: %w", lineNo, err)
		}
		ops = append(ops, Op{Kind: line.Kind, ID: line.ID, Data: line.Data})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	return m.Apply(context.Background(), ops)
}
