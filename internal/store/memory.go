package store

import (
	"context"
	"sync"

	"github.com/playperu/shapedrop/internal/game"
)

// MemoryStore keeps the flat key layout in a map. It is meant for tests and
// single-process development.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) read(sessionID string) record {
	rec := make(record, len(fields))
	for _, f := range fields {
		if v, ok := s.data[Key(sessionID, f)]; ok {
			rec[f] = v
		}
	}
	return rec
}

func (s *MemoryStore) write(sessionID string, rec record) {
	for _, f := range fields {
		k := Key(sessionID, f)
		if v, ok := rec[f]; ok {
			s.data[k] = v
		} else {
			delete(s.data, k)
		}
	}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (game.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decode(s.read(sessionID))
}

func (s *MemoryStore) Create(_ context.Context, sessionID string, st game.State) error {
	rec, err := encode(st)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[Key(sessionID, fieldRound)]; ok {
		return ErrExists
	}
	s.write(sessionID, rec)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, sessionID string, fn UpdateFunc) (game.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := decode(s.read(sessionID))
	if err != nil {
		return st, err
	}
	if err := fn(&st); err != nil {
		return st, err
	}
	rec, err := encode(st)
	if err != nil {
		return st, err
	}
	s.write(sessionID, rec)
	return st, nil
}

// Set writes a raw value, bypassing encoding. Tests use it to plant
// malformed data.
func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *MemoryStore) Check(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
