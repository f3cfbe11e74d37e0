// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package index

import "github.com/google/btree"

// btreeDegree matches the degree used by Kirov7-CouloyDB's meta.BTree, an
// in-memory key index serving the same role as this OrderedIndex.
const btreeDegree = 32

// BTreeIndex is an OrderedIndex backed by github.com/google/btree. It
// serves the spec's "rbtree" index option: no red-black tree
// implementation appears anywhere in the example corpus, while a
// comparator-driven ordered B-tree multiset playing exactly this role
// does (see DESIGN.md).
type BTreeIndex struct {
	cmp  *Comparator
	tree *btree.BTree
	n    int
}

// NewBTreeIndex constructs an empty BTreeIndex ordered by cmp.
func NewBTreeIndex(cmp *Comparator) *BTreeIndex {
	return &BTreeIndex{cmp: cmp, tree: btree.New(btreeDegree)}
}

type btreeItem struct {
	e   *Entry
	cmp *Comparator
}

func (i *btreeItem) Less(than btree.Item) bool {
	return i.cmp.Compare(i.e, than.(*btreeItem).e) < 0
}

// Insert implements OrderedIndex.
func (b *BTreeIndex) Insert(e *Entry) error {
	b.tree.ReplaceOrInsert(&btreeItem{e: e, cmp: b.cmp})
	b.n++
	return nil
}

// Len implements OrderedIndex.
func (b *BTreeIndex) Len() int { return b.n }

// NewIter implements OrderedIndex.
func (b *BTreeIndex) NewIter() Iterator {
	return &btreeIterator{b: b}
}

type btreeIterator struct {
	b   *BTreeIndex
	cur *Entry
}

func (it *btreeIterator) SeekGE(probe *Entry) bool {
	it.cur = nil
	it.b.tree.AscendGreaterOrEqual(&btreeItem{e: probe, cmp: it.b.cmp}, func(i btree.Item) bool {
		it.cur = i.(*btreeItem).e
		return false
	})
	return it.cur != nil
}

func (it *btreeIterator) SeekLT(probe *Entry) bool {
	it.cur = nil
	it.b.tree.DescendLessOrEqual(&btreeItem{e: probe, cmp: it.b.cmp}, func(i btree.Item) bool {
		it.cur = i.(*btreeItem).e
		return false
	})
	return it.cur != nil
}

func (it *btreeIterator) First() bool {
	item := it.b.tree.Min()
	if item == nil {
		it.cur = nil
		return false
	}
	it.cur = item.(*btreeItem).e
	return true
}

func (it *btreeIterator) Last() bool {
	item := it.b.tree.Max()
	if item == nil {
		it.cur = nil
		return false
	}
	it.cur = item.(*btreeItem).e
	return true
}

func (it *btreeIterator) Next() bool {
	if it.cur == nil {
		return false
	}
	cur := it.cur
	it.cur = nil
	it.b.tree.AscendGreaterOrEqual(&btreeItem{e: cur, cmp: it.b.cmp}, func(i btree.Item) bool {
		e := i.(*btreeItem).e
		if e == cur {
			return true
		}
		it.cur = e
		return false
	})
	return it.cur != nil
}

func (it *btreeIterator) Prev() bool {
	if it.cur == nil {
		return false
	}
	cur := it.cur
	it.cur = nil
	it.b.tree.DescendLessOrEqual(&btreeItem{e: cur, cmp: it.b.cmp}, func(i btree.Item) bool {
		e := i.(*btreeItem).e
		if e == cur {
			return true
		}
		it.cur = e
		return false
	})
	return it.cur != nil
}

func (it *btreeIterator) Valid() bool { return it.cur != nil }
func (it *btreeIterator) Entry() *Entry { return it.cur }
func (it *btreeIterator) Close() error {
	it.cur = nil
	return nil
}
