// Copyright 2017 Dgraph Labs, Inc. and Contributors. Modifications
// copyright (C) 2017 Andy Kimball and Contributors. Further modifications
// copyright 2018 The LevelDB-Go and Pebble Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Adapted from github.com/cockroachdb/pebble's internal/batchskl: a
// non-concurrent skiplist over externally-stored keys, supporting forward
// and backward iteration. Unlike batchskl, nodes here carry a *Entry
// directly rather than an offset into a byte buffer, and the comparator
// always consults the full (column_id, user_key, seq) order — the
// abbreviated-key cache-locality fast path from batchskl is dropped since
// a multi-column comparator can't cheaply abbreviate across column
// boundaries; see DESIGN.md.
package index

import (
	"math"
	"time"

	"golang.org/x/exp/rand"
)

const maxHeight = 20

type sklLinks struct {
	next uint32
	prev uint32
}

type sklNode struct {
	entry *Entry
	links [maxHeight]sklLinks
}

// Skiplist is an OrderedIndex backed by a randomized skiplist.
type Skiplist struct {
	cmp    *Comparator
	nodes  []sklNode
	head   uint32
	tail   uint32
	height uint32
	rng    rand.PCGSource
}

var probabilities [maxHeight]uint32

func init() {
	const pValue = 1 / math.E
	p := float64(1.0)
	for i := 0; i < maxHeight; i++ {
		probabilities[i] = uint32(float64(math.MaxUint32) * p)
		p *= pValue
	}
}

// NewSkiplist constructs an empty Skiplist ordered by cmp.
func NewSkiplist(cmp *Comparator) *Skiplist {
	s := &Skiplist{cmp: cmp, height: 1}
	s.rng.Seed(uint64(time.Now().UnixNano()))

	s.head = s.newNode(nil)
	s.tail = s.newNode(nil)
	for i := uint32(0); i < maxHeight; i++ {
		s.setNext(s.head, i, s.tail)
		s.setPrev(s.tail, i, s.head)
	}
	return s
}

func (s *Skiplist) newNode(e *Entry) uint32 {
	s.nodes = append(s.nodes, sklNode{entry: e})
	return uint32(len(s.nodes) - 1)
}

func (s *Skiplist) next(nd, level uint32) uint32 { return s.nodes[nd].links[level].next }
func (s *Skiplist) prev(nd, level uint32) uint32 { return s.nodes[nd].links[level].prev }
func (s *Skiplist) setNext(nd, level, v uint32)  { s.nodes[nd].links[level].next = v }
func (s *Skiplist) setPrev(nd, level, v uint32)  { s.nodes[nd].links[level].prev = v }

func (s *Skiplist) randomHeight() uint32 {
	rnd := uint32(s.rng.Uint64())
	h := uint32(1)
	for h < maxHeight && rnd <= probabilities[h] {
		h++
	}
	return h
}

type splice struct {
	prev, next uint32
}

// findSplice returns, at every level, the node immediately preceding the
// first node whose entry is >= probe (per s.cmp).
func (s *Skiplist) findSplice(probe *Entry) (spl [maxHeight]splice) {
	prev := s.head
	for level := int(s.height) - 1; level >= 0; level-- {
		var next uint32
		prev, next = s.findSpliceForLevel(probe, uint32(level), prev)
		spl[level] = splice{prev: prev, next: next}
	}
	return spl
}

func (s *Skiplist) findSpliceForLevel(probe *Entry, level, start uint32) (prev, next uint32) {
	prev = start
	for {
		next = s.next(prev, level)
		if next == s.tail {
			break
		}
		if s.cmp.Compare(s.nodes[next].entry, probe) >= 0 {
			break
		}
		prev = next
	}
	return prev, next
}

// Insert implements OrderedIndex.
func (s *Skiplist) Insert(e *Entry) error {
	spl := s.findSplice(e)

	height := s.randomHeight()
	nd := s.newNode(e)
	for ; s.height < height; s.height++ {
		spl[s.height] = splice{prev: s.head, next: s.tail}
	}

	for level := uint32(0); level < height; level++ {
		next := spl[level].next
		prev := spl[level].prev
		s.setNext(nd, level, next)
		s.setPrev(nd, level, prev)
		s.setNext(prev, level, nd)
		s.setPrev(next, level, nd)
	}
	return nil
}

// Len implements OrderedIndex.
func (s *Skiplist) Len() int {
	return len(s.nodes) - 2 // exclude head and tail sentinels
}

// NewIter implements OrderedIndex.
func (s *Skiplist) NewIter() Iterator {
	return &sklIterator{list: s}
}

type sklIterator struct {
	list *Skiplist
	nd   uint32
}

func (it *sklIterator) SeekGE(probe *Entry) bool {
	_, next := it.list.seekForBaseSplice(probe)
	it.nd = next
	return it.nd != it.list.tail
}

func (it *sklIterator) SeekLT(probe *Entry) bool {
	prev, next := it.list.seekForBaseSplice(probe)
	if next != it.list.tail && it.list.cmp.Compare(it.list.nodes[next].entry, probe) == 0 {
		it.nd = next
	} else {
		it.nd = prev
	}
	return it.nd != it.list.head
}

func (it *sklIterator) First() bool {
	it.nd = it.list.next(it.list.head, 0)
	return it.nd != it.list.tail
}

func (it *sklIterator) Last() bool {
	it.nd = it.list.prev(it.list.tail, 0)
	return it.nd != it.list.head
}

func (it *sklIterator) Next() bool {
	it.nd = it.list.next(it.nd, 0)
	return it.nd != it.list.tail
}

func (it *sklIterator) Prev() bool {
	it.nd = it.list.prev(it.nd, 0)
	return it.nd != it.list.head
}

func (it *sklIterator) Valid() bool {
	return it.nd != it.list.head && it.nd != it.list.tail
}

func (it *sklIterator) Entry() *Entry {
	return it.list.nodes[it.nd].entry
}

func (it *sklIterator) Close() error {
	*it = sklIterator{}
	return nil
}

func (s *Skiplist) seekForBaseSplice(probe *Entry) (prev, next uint32) {
	prev = s.head
	for level := int(s.height) - 1; level >= 0; level-- {
		prev, next = s.findSpliceForLevel(probe, uint32(level), prev)
	}
	return prev, next
}
