package kvstore

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// memRaw is an in-process RawStore backed by a sorted map, standing in
// for the real embedded engine (spec.md §1, §9). Good enough to exercise
// every Engine behavior without cgo or an on-disk format.
type memRaw struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemRawStore builds an in-memory RawStore.
func NewMemRawStore() RawStore {
	return &memRaw{data: make(map[string][]byte)}
}

func (s *memRaw) Get(_ context.Context, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *memRaw) Put(_ context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (s *memRaw) PutIfAbsent(_ context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[string(key)]; ok {
		return ErrExists
	}
	s.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (s *memRaw) Remove(_ context.Context, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[string(key)]; !ok {
		return ErrNotFound
	}
	delete(s.data, string(key))
	return nil
}

func (s *memRaw) Exists(_ context.Context, key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[string(key)]
	return ok, nil
}

func (s *memRaw) Update(_ context.Context, oldKey, newKey, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[string(oldKey)]; !ok {
		return ErrNotFound
	}
	delete(s.data, string(oldKey))
	s.data[string(newKey)] = append([]byte(nil), value...)
	return nil
}

func (s *memRaw) ScanPrefix(_ context.Context, prefix []byte) (Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = append([]byte(nil), s.data[k]...)
	}
	return &sliceIterator{keys: keys, values: values, pos: -1}, nil
}

func (s *memRaw) Close() error { return nil }

type sliceIterator struct {
	keys   []string
	values [][]byte
	pos    int
}

func (it *sliceIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *sliceIterator) Key() []byte   { return []byte(it.keys[it.pos]) }
func (it *sliceIterator) Value() []byte { return it.values[it.pos] }
func (it *sliceIterator) Err() error    { return nil }
func (it *sliceIterator) Close() error  { return nil }
