// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import "sort"

// memStore is a minimal in-memory Store used by tests that need an
// external base view to overlay an IndexedBatch on top of.
type memStore struct {
	data  map[uint32]map[string][]byte
	merge map[uint32]MergeOperator
}

func newMemStore() *memStore {
	return &memStore{data: make(map[uint32]map[string][]byte)}
}

func (s *memStore) put(column uint32, key, value string) {
	if s.data[column] == nil {
		s.data[column] = make(map[string][]byte)
	}
	s.data[column][key] = []byte(value)
}

func (s *memStore) setMergeOperator(column uint32, op MergeOperator) {
	if s.merge == nil {
		s.merge = make(map[uint32]MergeOperator)
	}
	s.merge[column] = op
}

func (s *memStore) Get(_ ReadOptions, column uint32, key []byte) ([]byte, error) {
	if v, ok := s.data[column][string(key)]; ok {
		return v, nil
	}
	return nil, ErrNotFound
}

func (s *memStore) ColumnUserComparator(uint32) Compare { return nil }

func (s *memStore) ColumnMergeOperator(column uint32) MergeOperator { return s.merge[column] }

func (s *memStore) NewIterator(_ ReadOptions, column uint32) BaseIterator {
	keys := make([]string, 0, len(s.data[column]))
	for k := range s.data[column] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &memBaseIterator{store: s, column: column, keys: keys, pos: -1}
}

// memBaseIterator is a sorted-slice BaseIterator over one column of a
// memStore's snapshot at the time NewIterator was called.
type memBaseIterator struct {
	store  *memStore
	column uint32
	keys   []string
	pos    int
}

func (it *memBaseIterator) SeekToFirst() bool {
	it.pos = 0
	return it.Valid()
}

func (it *memBaseIterator) SeekToLast() bool {
	it.pos = len(it.keys) - 1
	return it.Valid()
}

func (it *memBaseIterator) SeekGE(key []byte) bool {
	it.pos = sort.SearchStrings(it.keys, string(key))
	return it.Valid()
}

func (it *memBaseIterator) SeekForPrev(key []byte) bool {
	i := sort.SearchStrings(it.keys, string(key))
	if i < len(it.keys) && it.keys[i] == string(key) {
		it.pos = i
	} else {
		it.pos = i - 1
	}
	return it.Valid()
}

func (it *memBaseIterator) Next() bool {
	it.pos++
	return it.Valid()
}

func (it *memBaseIterator) Prev() bool {
	it.pos--
	return it.Valid()
}

func (it *memBaseIterator) Valid() bool { return it.pos >= 0 && it.pos < len(it.keys) }

func (it *memBaseIterator) Key() []byte { return []byte(it.keys[it.pos]) }

func (it *memBaseIterator) Value() []byte { return it.store.data[it.column][it.keys[it.pos]] }

func (it *memBaseIterator) Error() error { return nil }
