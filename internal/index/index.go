// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package index

// Kind selects an OrderedIndex implementation.
type Kind string

// Recognized Kind values.
const (
	SkiplistKind Kind = "skiplist"
	RBTree       Kind = "rbtree"
)

// OrderedIndex is an abstract ordered multiset of *Entry handles, pluggable
// between a skiplist and a btree-backed implementation (spec §4.3). Entries
// within equal (column_id, user_key) preserve allocation order.
type OrderedIndex interface {
	// Insert adds e to the index. It never returns a non-nil error in
	// either implementation provided by this package, since Entry.seq
	// guarantees every entry compares distinctly; the error return exists
	// for implementations that might enforce stricter uniqueness.
	Insert(e *Entry) error

	// NewIter returns a new, unpositioned Iterator.
	NewIter() Iterator

	// Len reports the number of entries currently in the index.
	Len() int
}

// Iterator is a bidirectional cursor over an OrderedIndex.
type Iterator interface {
	SeekGE(probe *Entry) bool
	SeekLT(probe *Entry) bool
	First() bool
	Last() bool
	Next() bool
	Prev() bool
	Valid() bool
	Entry() *Entry
	Close() error
}

// New constructs an OrderedIndex of the given kind.
func New(kind Kind, cmp *Comparator) OrderedIndex {
	switch kind {
	case SkiplistKind:
		return NewSkiplist(cmp)
	case RBTree:
		return NewBTreeIndex(cmp)
	default:
		return NewBTreeIndex(cmp)
	}
}
