package storage

import (
	"fmt"
	"sync"
)

// InMemoryStore is a Store implementation powered by a map, to be used for
// testing.
type InMemoryStore struct {
	sync.Mutex
	m map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		m: make(map[string][]byte),
	}
}

func (s *InMemoryStore) Put(name string, data []byte) (err error) {
	key, err := cleanName(name)
	if err != nil {
		return fmt.Errorf("%q: %w", name, err)
	}
	s.Lock()
	s.m[key] = dup(data)
	s.Unlock()
	return nil
}

func (s *InMemoryStore) Get(name string) (data []byte, err error) {
	key, err := cleanName(name)
	if err != nil {
		return nil, fmt.Errorf("%q: %v: %w", name, err, ErrNotFound)
	}
	s.Lock()
	data, ok := s.m[key]
	s.Unlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return dup(data), nil
}

func (s *InMemoryStore) Exists(name string) (ok bool, err error) {
	key, err := cleanName(name)
	if err != nil {
		return false, nil
	}
	s.Lock()
	_, ok = s.m[key]
	s.Unlock()
	return ok, nil
}
