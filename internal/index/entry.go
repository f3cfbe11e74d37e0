// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package index implements the secondary ordered index over a batch's
// record log: a pluggable ordered multiset of IndexEntry descriptors,
// keyed by (column_id, user_key), adapted from
// github.com/cockroachdb/pebble's internal/batchskl skiplist and
// generalized to also support a github.com/google/btree-backed
// implementation.
package index

import "sync/atomic"

// Flags distinguishes a normal entry from the sentinel probes used to
// scope a column-local seek to the start or end of its column.
type Flags uint8

// Recognized entry flags.
const (
	Normal Flags = iota
	SentinelMin
	SentinelMax
)

func (f Flags) rank() int {
	switch f {
	case SentinelMin:
		return 0
	case SentinelMax:
		return 2
	default:
		return 1
	}
}

// Entry is a fixed-size descriptor for one key-bearing record in a
// batch's record log. Every field besides LogOffset is immutable once
// allocated; LogOffset is mutated in place, under a word-sized atomic
// store, by overwrite-mode update-in-place (see Entry.SetLogOffset).
type Entry struct {
	ColumnID  uint32
	KeyOffset uint32
	KeyLength uint32
	Flags     Flags

	// Key holds inline key bytes for a standalone search probe (one that
	// is never arena-allocated or inserted into an OrderedIndex). Real,
	// indexed entries leave this nil and address their key through
	// (KeyOffset, KeyLength) into the record log instead, per spec §3
	// ("avoids copying").
	Key []byte

	logOffset atomic.Uint32

	// seq is an internal, never-serialized monotonic allocation sequence
	// assigned by the Arena. It exists purely to give the ordered-index
	// backends a total order for entries that share a (ColumnID, user
	// key): in non-overwrite mode, ties are broken in allocation
	// (insertion) order, matching the multiset semantics in spec §4.3.
	seq uint64
}

// LogOffset returns the byte offset into the record log where this
// entry's record begins.
func (e *Entry) LogOffset() uint32 { return e.logOffset.Load() }

// SetLogOffset atomically updates the entry's log offset. Used only by
// overwrite-mode update-in-place; a concurrent BatchIterator may observe
// either the old or the new offset, but never a torn value.
func (e *Entry) SetLogOffset(v uint32) { e.logOffset.Store(v) }

// Seq returns the entry's internal allocation sequence. Exported for use
// by ordered-index implementations outside this package's own files;
// callers outside of index construction should not depend on its value.
func (e *Entry) Seq() uint64 { return e.seq }

// MaxSeq is greater than any seq the Arena will ever assign. A probe's
// seq defaults to 0, which sorts before every real entry sharing its
// (column, key) — correct for a SeekGE probe, where that guarantees an
// exact key match is included rather than skipped. A SeekLT/SeekForPrev
// probe needs the opposite: set its seq to MaxSeq via SetSeq so it sorts
// after every real entry sharing its key, making an exact match count as
// "less than" the probe and so be included in a floor search.
const MaxSeq = ^uint64(0)

// SetSeq overrides a probe's tie-break sequence. Only meaningful on a
// standalone Entry returned by NewProbe; real, arena-allocated entries
// must never have their seq altered after Insert.
func (e *Entry) SetSeq(seq uint64) { e.seq = seq }

// NewProbe constructs a standalone Entry (not arena-allocated, never
// inserted) used to seek an OrderedIndex to a particular (column, key) or
// to one of the two column-bounding sentinels. key may be nil for
// sentinel probes.
func NewProbe(columnID uint32, key []byte, flags Flags) *Entry {
	return &Entry{ColumnID: columnID, Key: key, Flags: flags}
}
