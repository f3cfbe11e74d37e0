// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import (
	"fmt"

	"github.com/cockroachdb-labs/indexedbatch/internal/index"
)

// RecordView is a decoded, key-bearing record yielded by a BatchIterator.
type RecordView struct {
	Tag   Tag
	Key   []byte
	Value []byte

	// aux carries a TagMerge record's encoded base-value state and
	// accumulated earlier operands (see decodeMergeAux); unused for every
	// other tag.
	aux []byte
}

// BatchIterator walks the secondary index for a single column namespace,
// decoding records from the batch's record log on demand. It mirrors
// batchIter from the teacher's root batch.go, generalized to scope
// traversal to one column of a multi-column index via sentinel probes
// (spec §4.4).
type BatchIterator struct {
	log      *RecordLog
	it       index.Iterator
	columnID uint32
	err      error
}

func newBatchIterator(log *RecordLog, idx index.OrderedIndex, columnID uint32) *BatchIterator {
	return &BatchIterator{log: log, it: idx.NewIter(), columnID: columnID}
}

func (b *BatchIterator) probe(flags index.Flags, columnID uint32, key []byte) *index.Entry {
	return index.NewProbe(columnID, key, flags)
}

// SeekToFirst positions the iterator at the first entry in the column.
func (b *BatchIterator) SeekToFirst() bool {
	b.it.SeekGE(b.probe(index.SentinelMin, b.columnID, nil))
	return b.Valid()
}

// SeekToLast positions the iterator at the last entry in the column.
func (b *BatchIterator) SeekToLast() bool {
	if ok := b.it.SeekGE(b.probe(index.SentinelMin, b.columnID+1, nil)); !ok {
		b.it.Last()
	} else {
		b.it.Prev()
	}
	return b.Valid()
}

// Seek positions the iterator at the first entry with a key >= key.
func (b *BatchIterator) Seek(key []byte) bool {
	b.it.SeekGE(b.probe(index.Normal, b.columnID, key))
	return b.Valid()
}

// SeekForPrev positions the iterator at the last entry with a key <= key.
func (b *BatchIterator) SeekForPrev(key []byte) bool {
	probe := b.probe(index.Normal, b.columnID, key)
	// Sort the probe after every real entry sharing this key (see
	// Entry.MaxSeq) so an exact match is treated as "<= key" rather than
	// skipped past in favor of the previous, strictly-lesser key.
	probe.SetSeq(index.MaxSeq)
	b.it.SeekLT(probe)
	return b.Valid()
}

// Next advances the iterator.
func (b *BatchIterator) Next() bool {
	b.it.Next()
	return b.Valid()
}

// Prev moves the iterator backward.
func (b *BatchIterator) Prev() bool {
	b.it.Prev()
	return b.Valid()
}

// Valid reports whether the iterator is positioned at a live entry within
// this iterator's column.
func (b *BatchIterator) Valid() bool {
	return b.it.Valid() && b.it.Entry().ColumnID == b.columnID
}

// Entry decodes and returns the record the iterator is currently
// positioned at.
func (b *BatchIterator) Entry() (RecordView, error) {
	e := b.it.Entry()
	rec, _, err := b.log.ReadRecord(e.LogOffset())
	if err != nil {
		b.err = err
		return RecordView{}, err
	}
	if !rec.Tag.IsKeyBearing() {
		// Invariant violation: only Put/Delete/SingleDelete/Merge/
		// DeleteRange records are ever indexed (spec §4.4). LogData and
		// transaction-control tags must never reach here.
		panic(fmt.Sprintf("indexed entry at offset %d points at non key-bearing record (tag %s)", e.LogOffset(), rec.Tag))
	}
	return RecordView{Tag: rec.Tag, Key: rec.Key, Value: rec.Value, aux: rec.Aux}, nil
}

// Error returns the first error encountered while decoding an entry.
func (b *BatchIterator) Error() error { return b.err }

// Close releases the iterator's resources.
func (b *BatchIterator) Close() error { return b.it.Close() }
