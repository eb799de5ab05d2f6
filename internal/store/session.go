package store

import (
	"context"
	"encoding/json"
	"fmt"
)

type entryKey struct {
	kind Kind
	id   string
}

type entry struct {
	value   any
	dirty   bool
	deleted bool
	missing bool
}

// Session is a unit of work over a Store. Entities loaded through it are
// cached by pointer for the lifetime of the session, so every caller within
// one event sees the same instance. Writes are buffered until Commit.
type Session struct {
	store   Store
	entries map[entryKey]*entry
	order   []entryKey
}

func NewSession(s Store) *Session {
	return &Session{
		store:   s,
		entries: make(map[entryKey]*entry),
	}
}

func (s *Session) lookup(kind Kind, id string) (*entry, bool) {
	e, ok := s.entries[entryKey{kind, id}]
	return e, ok
}

func (s *Session) remember(kind Kind, id string) *entry {
	key := entryKey{kind, id}
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
		s.order = append(s.order, key)
	}
	return e
}

// Get returns the entity of kind with id, loading it from the store on first use.
func Get[T any](ctx context.Context, s *Session, kind Kind, id string) (*T, bool, error) {
	if e, ok := s.lookup(kind, id); ok {
		if e.missing || e.deleted {
			return nil, false, nil
		}
		v, ok := e.value.(*T)
		if !ok {
			return nil, false, fmt.Errorf("%s %s cached as %T", kind, id, e.value)
		}
		return v, true, nil
	}

	data, found, err := s.store.Load(ctx, kind, id)
	if err != nil {
		return nil, false, fmt.Errorf("load %s %s: %w", kind, id, err)
	}
	e := s.remember(kind, id)
	if !found {
		e.missing = true
		return nil, false, nil
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, false, fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	e.value = v
	return v, true, nil
}

// MustGet is Get for entities that are required to exist.
func MustGet[T any](ctx context.Context, s *Session, kind Kind, id string) (*T, error) {
	v, ok, err := Get[T](ctx, s, kind, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return v, nil
}

// Put stages v for writing and makes it visible to later Gets.
func Put[T any](s *Session, kind Kind, id string, v *T) {
	e := s.remember(kind, id)
	e.value = v
	e.dirty = true
	e.deleted = false
	e.missing = false
}

// Delete stages the removal of an entity.
func (s *Session) Delete(kind Kind, id string) {
	e := s.remember(kind, id)
	e.value = nil
	e.dirty = true
	e.deleted = true
}

// Pending returns the number of staged writes.
func (s *Session) Pending() int {
	n := 0
	for _, e := range s.entries {
		if e.dirty {
			n++
		}
	}
	return n
}

// Commit writes every staged entity plus extra in one batch, in first-touch
// order, and resets the session. It returns the number of ops applied.
func (s *Session) Commit(ctx context.Context, extra ...Op) (int, error) {
	ops := make([]Op, 0, len(s.order)+len(extra))
	for _, key := range s.order {
		e := s.entries[key]
		if !e.dirty {
			continue
		}
		if e.deleted {
			ops = append(ops, Op{Kind: key.kind, ID: key.id, Delete: true})
			continue
		}
		data, err := json.Marshal(e.value)
		if err != nil {
			return 0, fmt.Errorf("encode %s %s: %w", key.kind, key.id, err)
		}
		ops = append(ops, Op{Kind: key.kind, ID: key.id, Data: data})
	}
	ops = append(ops, extra...)

	if len(ops) > 0 {
		if err := s.store.Apply(ctx, ops); err != nil {
			return 0, fmt.Errorf("apply batch: %w", err)
		}
	}
	s.Discard()
	return len(ops), nil
}

// Discard drops every cached entity and staged write.
func (s *Session) Discard() {
	s.entries = make(map[entryKey]*entry)
	s.order = nil
}
