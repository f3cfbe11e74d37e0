// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import (
	"github.com/cockroachdb/errors"

	"github.com/cockroachdb-labs/indexedbatch/internal/index"
)

// DefaultColumn is the column ID used by every IndexedBatch method that
// does not take an explicit column argument.
const DefaultColumn uint32 = 0

// IndexedBatch accumulates Put/Delete/SingleDelete/DeleteRange/Merge
// mutations (and out-of-band LogData) into a RecordLog, indexing every
// key-bearing record into a pluggable OrderedIndex so the batch's own
// pending writes can be iterated or looked up before being committed to
// a Store. Adapted from the teacher repository's root batch.go facade
// (indexedBatch/flushableBatch), generalized from a single LSM column
// family to arbitrary caller-defined columns.
type IndexedBatch struct {
	opts *Options
	log  *RecordLog

	arena *index.Arena
	cmp   *index.Comparator
	index index.OrderedIndex

	obsoleteRecords int
}

// Open constructs an empty IndexedBatch. opts may be nil, in which case
// default options are used; a non-nil opts is defensively copied via
// EnsureDefaults and is safe for the caller to keep mutating afterward.
func Open(opts *Options) *IndexedBatch {
	o := &Options{}
	if opts != nil {
		*o = *opts
	}
	o.EnsureDefaults()

	b := &IndexedBatch{
		opts:  o,
		log:   NewRecordLog(o.ReservedBytes),
		arena: index.NewArena(),
	}
	b.cmp = index.NewComparator(b.log, o.DefaultCompare)
	b.index = index.New(index.Kind(o.IndexKind), b.cmp)
	return b
}

// SetComparator registers a key comparator for column, overriding
// Options.DefaultCompare for that column only. Must be called before the
// column is first written to.
func (b *IndexedBatch) SetComparator(column uint32, cmp Compare) {
	b.cmp.SetColumnCompare(column, cmp)
}

// columnCompare returns the effective key comparator for column, honoring
// any comparator registered via SetComparator.
func (b *IndexedBatch) columnCompare(column uint32) Compare {
	return compareForColumn(b.cmp, column)
}

// GetRecordLog returns the batch's underlying RecordLog, primarily for
// callers that need to ship the batch's raw mutation stream to a Store
// as a single commit.
func (b *IndexedBatch) GetRecordLog() *RecordLog { return b.log }

// Len returns the number of records appended to the batch, including
// non-key-bearing control records.
func (b *IndexedBatch) Len() uint32 { return b.log.Count() }

// Empty reports whether the batch has no records at all.
func (b *IndexedBatch) Empty() bool { return b.log.Count() == 0 }

// MetricsSnapshot returns a plain-data snapshot of the batch's current
// metrics, regardless of whether Options.Metrics was configured.
func (b *IndexedBatch) MetricsSnapshot() Snapshot {
	return Snapshot{
		IndexEntries:    b.index.Len(),
		ObsoleteRecords: b.obsoleteRecords,
		RecordLogBytes:  b.log.Size(),
	}
}

// Put stages a key-value write into DefaultColumn.
func (b *IndexedBatch) Put(key, value []byte) error {
	return b.PutColumn(DefaultColumn, key, value)
}

// PutColumn stages a key-value write into column.
func (b *IndexedBatch) PutColumn(column uint32, key, value []byte) error {
	return b.mutate(TagPut, column, key, value, nil)
}

// Delete stages a point deletion of key in DefaultColumn.
func (b *IndexedBatch) Delete(key []byte) error {
	return b.DeleteColumn(DefaultColumn, key)
}

// DeleteColumn stages a point deletion of key in column.
func (b *IndexedBatch) DeleteColumn(column uint32, key []byte) error {
	return b.mutate(TagDelete, column, key, nil, nil)
}

// SingleDelete stages a single-delete of key in DefaultColumn: a
// deletion that is only well-defined when key was written at most once
// since the last compaction, per RocksDB/Pebble's SingleDelete contract.
func (b *IndexedBatch) SingleDelete(key []byte) error {
	return b.SingleDeleteColumn(DefaultColumn, key)
}

// SingleDeleteColumn stages a single-delete of key in column.
func (b *IndexedBatch) SingleDeleteColumn(column uint32, key []byte) error {
	return b.mutate(TagSingleDelete, column, key, nil, nil)
}

// DeleteRange stages a deletion of every key in [start, end) in
// DefaultColumn.
func (b *IndexedBatch) DeleteRange(start, end []byte) error {
	return b.DeleteRangeColumn(DefaultColumn, start, end)
}

// DeleteRangeColumn stages a deletion of every key in [start, end) in
// column. The range is indexed by its start key only; MergedIterator does
// not attempt to honor range tombstones against the base store (spec
// §4.9/Non-goals): it surfaces the record as one TagDeleteRange entry at
// start, shadowing a base entry with exactly that key, and leaves the
// other base keys inside the range visible.
func (b *IndexedBatch) DeleteRangeColumn(column uint32, start, end []byte) error {
	return b.mutate(TagDeleteRange, column, start, end, nil)
}

// Merge stages a merge operand for key in DefaultColumn.
func (b *IndexedBatch) Merge(key, operand []byte) error {
	return b.MergeColumn(DefaultColumn, key, operand)
}

// MergeColumn stages a merge operand for key in column. In overwrite
// mode, a merge for a key that already has an index entry (of any tag)
// returns ErrUnsupported unless Options.AllowDuplicateMerge is set; when
// it is set, the new record carries the superseded entry's operands or
// base state in its Aux, so the key keeps a single index entry.
func (b *IndexedBatch) MergeColumn(column uint32, key, operand []byte) error {
	return b.mutate(TagMerge, column, key, operand, nil)
}

// PutLogData appends an out-of-band, non-key-bearing record carrying
// caller data through the record log (e.g. a write-ahead-log annotation).
// It is never indexed and never observed by an iterator.
func (b *IndexedBatch) PutLogData(data []byte) error {
	return b.mutate(TagLogData, 0, nil, nil, data)
}

// Clear discards every record and index entry, retaining the log's
// reserved capacity.
func (b *IndexedBatch) Clear() {
	b.log.Clear()
	b.arena.Reset()
	b.index = index.New(index.Kind(b.opts.IndexKind), b.cmp)
	b.obsoleteRecords = 0
	if m := b.opts.Metrics; m != nil {
		m.IndexEntries.Set(0)
		m.ObsoleteRecords.Set(0)
		m.RecordLogBytes.Set(0)
	}
}

// SetSavePoint marks the batch's current state as a rewind point.
func (b *IndexedBatch) SetSavePoint() { b.log.SetSavePoint() }

// RollbackToSavePoint discards every mutation staged since the most
// recent SetSavePoint and rebuilds the index to match (spec §4.6,
// "rebuild_index"). It is an error to call this with no save point set.
func (b *IndexedBatch) RollbackToSavePoint() error {
	if err := b.log.RollbackToSavePoint(); err != nil {
		return err
	}
	return b.RebuildIndex()
}

// PopSavePoint discards the most recently set save point without
// rewinding the batch.
func (b *IndexedBatch) PopSavePoint() error { return b.log.PopSavePoint() }

// SetMaxBytes updates Options.MaxBytes for this batch. A value of 0
// means unlimited.
func (b *IndexedBatch) SetMaxBytes(maxBytes int) { b.opts.MaxBytes = maxBytes }

// mutate appends a record to the log, subject to Options.MaxBytes, and
// indexes it if it is key-bearing (spec §4.6, "add_or_update_index").
func (b *IndexedBatch) mutate(tag Tag, column uint32, key, value, aux []byte) error {
	if tag.IsKeyBearing() && b.opts.OverwriteKey {
		if existing := b.findExact(column, key); existing != nil {
			oldRec, _, err := b.log.ReadRecord(existing.LogOffset())
			if err != nil {
				return err
			}
			if tag == TagMerge {
				// Any merge that would update an existing entry — not
				// just one superseding an earlier pending merge — loses
				// information unless it is explicitly allowed to chain
				// (spec §4.6, "a merge that would overwrite an existing
				// entry is Unsupported unless allow_duplicate_merge").
				if !b.opts.AllowDuplicateMerge {
					return errors.Wrapf(ErrUnsupported, "merge for key %q would update an existing entry without AllowDuplicateMerge", key)
				}
				switch oldRec.Tag {
				case TagMerge:
					// Fold the superseded merge's own base state and
					// operand chain onto the front of the new record's
					// chain, so GetFromBatchAndStore/MergedIterator can
					// still resolve every operand staged for this key.
					base, state, olderOps := decodeMergeAux(oldRec.Aux)
					chained := append(append([][]byte{}, olderOps...), oldRec.Value)
					aux = encodeMergeAux(base, state, chained)
				case TagPut:
					// Seed the merge's base from the superseded Put so it
					// resolves against the batch's own value instead of
					// whatever (possibly unrelated) value sits in the
					// external store.
					aux = encodeMergeAux(oldRec.Value, mergeBasePresent, nil)
				default:
					// Delete/SingleDelete/DeleteRange: the batch has
					// already locally erased any value for this key, so
					// resolution must not fall back to the store's
					// (stale, since-deleted) value either.
					aux = encodeMergeAux(nil, mergeBaseAbsent, nil)
				}
			}
		}
	}

	if b.opts.MaxBytes > 0 {
		// Conservative pre-check: the true post-append size isn't known
		// until AppendRecord runs, so bound it by the tag byte, 40 bytes
		// for the record's uvarint headers, key, value, aux and checksum.
		estimate := b.log.Size() + 1 + 20 + 20 + len(key) + len(value) + len(aux) + checksumLen
		if estimate > b.opts.MaxBytes {
			return errors.Wrapf(ErrMemoryLimit, "appending record would exceed MaxBytes=%d", b.opts.MaxBytes)
		}
	}

	offset, keyOffset, keyLength, err := b.log.AppendRecord(tag, column, key, value, aux)
	if err != nil {
		return err
	}
	if m := b.opts.Metrics; m != nil {
		m.RecordLogBytes.Set(float64(b.log.Size()))
	}

	if tag.IsKeyBearing() {
		if err := b.indexRecord(tag, column, offset, keyOffset, keyLength, key); err != nil {
			return err
		}
	}
	return nil
}

// indexRecord adds or updates the secondary index entry for a
// newly-appended key-bearing record.
func (b *IndexedBatch) indexRecord(tag Tag, column, offset, keyOffset, keyLength uint32, key []byte) error {
	if b.opts.OverwriteKey {
		if existing := b.findExact(column, key); existing != nil {
			existing.SetLogOffset(offset)
			b.obsoleteRecords++
			if m := b.opts.Metrics; m != nil {
				m.ObsoleteRecords.Set(float64(b.obsoleteRecords))
			}
			return nil
		}
	}

	e := b.arena.Alloc(column, offset, keyOffset, keyLength, index.Normal)
	if err := b.index.Insert(e); err != nil {
		return err
	}
	if m := b.opts.Metrics; m != nil {
		m.IndexEntries.Set(float64(b.index.Len()))
	}
	return nil
}

// findExact returns the newest existing index entry for (column, key), or
// nil. The probe's seq is set to index.MaxSeq (see BatchIterator.SeekForPrev)
// so that SeekLT lands on the highest-seq entry sharing this key rather than
// the lowest: in non-overwrite mode a key may carry several live entries,
// and a point lookup must resolve to the most recently written one, not the
// first one ever staged (spec §4.6, "scanned from newest to oldest").
func (b *IndexedBatch) findExact(column uint32, key []byte) *index.Entry {
	probe := index.NewProbe(column, key, index.Normal)
	probe.SetSeq(index.MaxSeq)
	it := b.index.NewIter()
	defer it.Close()
	if !it.SeekLT(probe) {
		return nil
	}
	e := it.Entry()
	if !b.cmp.EqualKey(e, probe) {
		return nil
	}
	return e
}

// NewIterator returns a BatchIterator scoped to DefaultColumn.
func (b *IndexedBatch) NewIterator() *BatchIterator {
	return b.NewIteratorColumn(DefaultColumn)
}

// NewIteratorColumn returns a BatchIterator scoped to column.
func (b *IndexedBatch) NewIteratorColumn(column uint32) *BatchIterator {
	return newBatchIterator(b.log, b.index, column)
}

// NewMergedIterator returns a MergedIterator overlaying this batch's
// pending mutations in DefaultColumn on top of base. A pending Merge
// record is surfaced unresolved (spec §4.5); use GetFromBatchAndStore for
// merge resolution.
func (b *IndexedBatch) NewMergedIterator(base BaseIterator) (*MergedIterator, error) {
	return b.NewMergedIteratorColumn(DefaultColumn, base)
}

// NewMergedIteratorColumn returns a MergedIterator overlaying this
// batch's pending mutations in column on top of base. Returns
// ErrUnsupported unless the batch was opened with Options.OverwriteKey.
func (b *IndexedBatch) NewMergedIteratorColumn(column uint32, base BaseIterator) (*MergedIterator, error) {
	return NewMergedIterator(b.log, b, column, base)
}

// GetFromBatch looks up key in DefaultColumn among the batch's own
// pending mutations only, without consulting any external store. It
// returns ErrNotFound if the batch has no entry for key, and
// ErrMergeInProgress if the most recent record is a Merge (resolving a
// merge chain requires the store's existing value; use
// GetFromBatchAndStore instead).
func (b *IndexedBatch) GetFromBatch(key []byte) ([]byte, error) {
	return b.GetFromBatchColumn(DefaultColumn, key)
}

// GetFromBatchColumn is GetFromBatch scoped to column.
func (b *IndexedBatch) GetFromBatchColumn(column uint32, key []byte) ([]byte, error) {
	e := b.findExact(column, key)
	if e == nil {
		return nil, ErrNotFound
	}
	rec, _, err := b.log.ReadRecord(e.LogOffset())
	if err != nil {
		return nil, err
	}
	switch rec.Tag {
	case TagPut:
		return rec.Value, nil
	case TagDelete, TagSingleDelete, TagDeleteRange:
		return nil, ErrNotFound
	case TagMerge:
		return nil, ErrMergeInProgress
	default:
		return nil, errors.Wrapf(ErrCorruption, "indexed record at offset %d has non key-bearing tag %s", e.LogOffset(), rec.Tag)
	}
}

// GetFromBatchAndStore looks up key in DefaultColumn, first in the
// batch's own pending mutations and, if absent or pending a merge, in
// store. A pending Merge record is resolved with the store's merge
// operator for the column: against the store's existing value (if any)
// for the first merge staged for key, or against the batch's own
// superseded Put value, or no value after a superseded deletion.
func (b *IndexedBatch) GetFromBatchAndStore(opts ReadOptions, store Store, key []byte) ([]byte, error) {
	return b.GetFromBatchAndStoreColumn(opts, store, DefaultColumn, key)
}

// GetFromBatchAndStoreColumn is GetFromBatchAndStore scoped to column.
func (b *IndexedBatch) GetFromBatchAndStoreColumn(opts ReadOptions, store Store, column uint32, key []byte) ([]byte, error) {
	e := b.findExact(column, key)
	if e == nil {
		return store.Get(opts, column, key)
	}
	rec, _, err := b.log.ReadRecord(e.LogOffset())
	if err != nil {
		return nil, err
	}
	switch rec.Tag {
	case TagPut:
		return rec.Value, nil
	case TagDelete, TagSingleDelete, TagDeleteRange:
		return nil, ErrNotFound
	case TagMerge:
		mergeOp := store.ColumnMergeOperator(column)
		if mergeOp == nil {
			return nil, errors.Wrapf(ErrInvalidArgument, "column %d has a pending merge but no merge operator is registered", column)
		}
		base, state, olderOps := decodeMergeAux(rec.Aux)
		operands := append(olderOps, rec.Value)

		var existing []byte
		var hasExisting bool
		switch state {
		case mergeBasePresent:
			existing, hasExisting = base, true
		case mergeBaseAbsent:
			hasExisting = false
		default:
			v, err := store.Get(opts, column, key)
			switch {
			case errors.Is(err, ErrNotFound):
				hasExisting = false
			case err != nil:
				return nil, err
			default:
				existing, hasExisting = v, true
			}
		}
		return mergeOp.FullMerge(key, existing, hasExisting, operands)
	default:
		return nil, errors.Wrapf(ErrCorruption, "indexed record at offset %d has non key-bearing tag %s", e.LogOffset(), rec.Tag)
	}
}

// Collapse rewrites the record log to discard every record that has been
// superseded by a later update-in-place write, reclaiming the bytes that
// update-in-place leaves behind as garbage, and rebuilds the index
// against the compacted log (spec §4.6, "collapse"). It is most useful
// in overwrite mode; in non-overwrite mode there is nothing to reclaim,
// since no record is ever superseded, but Collapse remains safe to call.
func (b *IndexedBatch) Collapse() error {
	beforeCount := b.log.Count()

	live := make(map[uint32]bool, b.index.Len())
	it := b.index.NewIter()
	for ok := it.First(); ok; ok = it.Next() {
		live[it.Entry().LogOffset()] = true
	}
	it.Close()

	newLog := NewRecordLog(b.log.Size())
	newArena := index.NewArena()
	newCmp := index.NewComparator(newLog, b.opts.DefaultCompare)
	newIndex := index.New(index.Kind(b.opts.IndexKind), newCmp)

	r := b.log.Reader(0)
	var count uint32
	for {
		rec, offset, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if rec.Tag.IsKeyBearing() && !live[offset] {
			continue
		}
		var value, aux []byte
		switch rec.Tag {
		case TagPut, TagDeleteRange:
			value = rec.Value
		case TagMerge:
			value, aux = rec.Value, rec.Aux
		case TagLogData:
			aux = rec.Aux
		}
		newOffset, keyOffset, keyLength, err := newLog.AppendRecord(rec.Tag, rec.ColumnID, rec.Key, value, aux)
		if err != nil {
			return err
		}
		count++
		if rec.Tag.IsKeyBearing() {
			e := newArena.Alloc(rec.ColumnID, newOffset, keyOffset, keyLength, index.Normal)
			if err := newIndex.Insert(e); err != nil {
				return err
			}
		}
	}
	newLog.ResetCount(count)

	b.log = newLog
	b.arena = newArena
	b.cmp = newCmp
	b.index = newIndex
	b.obsoleteRecords = 0

	if m := b.opts.Metrics; m != nil {
		m.CollapseCount.Inc()
		m.IndexEntries.Set(float64(b.index.Len()))
		m.ObsoleteRecords.Set(0)
		m.RecordLogBytes.Set(float64(b.log.Size()))
	}
	b.opts.Logger.Infof("batch: collapse: %d records before, %d after", beforeCount, count)
	return nil
}

// RebuildIndex discards the current index and arena and rescans the
// entire record log from byte 0, reconstructing both from scratch. It is
// used after RollbackToSavePoint, whose RecordLog.Truncate leaves stale
// index entries pointing past the new end of the log, and is otherwise
// safe to call any time the log and index are known to have diverged.
func (b *IndexedBatch) RebuildIndex() error {
	beforeCount := b.log.Count()

	newArena := index.NewArena()
	newIndex := index.New(index.Kind(b.opts.IndexKind), b.cmp)

	r := b.log.Reader(0)
	var count uint32
	for {
		rec, offset, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		count++
		if !rec.Tag.IsKeyBearing() {
			continue
		}
		e := newArena.Alloc(rec.ColumnID, offset, rec.KeyOffset, rec.KeyLength, index.Normal)
		if b.opts.OverwriteKey {
			probe := index.NewProbe(rec.ColumnID, rec.Key, index.Normal)
			it := newIndex.NewIter()
			if it.SeekGE(probe) && b.cmp.EqualKey(it.Entry(), probe) {
				it.Entry().SetLogOffset(offset)
				it.Close()
				continue
			}
			it.Close()
		}
		if err := newIndex.Insert(e); err != nil {
			return err
		}
	}
	b.log.ResetCount(count)
	b.arena = newArena
	b.index = newIndex
	b.obsoleteRecords = 0

	if m := b.opts.Metrics; m != nil {
		m.IndexEntries.Set(float64(b.index.Len()))
		m.ObsoleteRecords.Set(0)
	}
	b.opts.Logger.Infof("batch: rebuild_index: %d records before, %d after", beforeCount, count)
	return nil
}

func compareForColumn(cmp *index.Comparator, column uint32) Compare {
	a := index.NewProbe(column, []byte{}, index.Normal)
	b := index.NewProbe(column, []byte{}, index.Normal)
	return func(x, y []byte) int {
		a.Key, b.Key = x, y
		return cmp.Compare(a, b)
	}
}
