// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import "github.com/cockroachdb/errors"

// direction tracks which way a MergedIterator last moved, matching
// mergingIter's own dir bookkeeping in the teacher repository.
type direction int8

const (
	dirForward direction = 1
	dirReverse direction = -1
)

// mergeSide identifies which of the two iterators a MergedIterator is
// currently vended from.
type mergeSide int8

const (
	sideNone mergeSide = iota
	sideBatch
	sideBase
)

// MergedIterator overlays an IndexedBatch's pending mutations on top of an
// external Store's point-in-time view, presenting one forward/backward
// ordered stream of (key, value) pairs with batch entries taking priority
// over equal base keys, and batch delete tombstones masking the
// corresponding base entry (spec §4.5). Construction is restricted to
// overwrite-mode batches, since a non-overwrite batch's index may hold
// more than one live entry per key and therefore cannot be projected onto
// a single current value per key.
//
// A pending Merge record is surfaced as-is, tagged TagMerge with its raw
// newest operand as Value — the merged iterator never calls a
// MergeOperator. Resolving a merge chain against an existing value is the
// point-get path's job (IndexedBatch.GetFromBatchAndStore), per spec §4.5.
//
// Adapted from mergingIter in the teacher repository's merging_iter.go,
// reduced from its N-way heap to a fixed two-way overlay.
type MergedIterator struct {
	batch *BatchIterator
	base  BaseIterator
	cmp   Compare

	dir     direction
	current mergeSide
	// cur caches the decoded batch-side record backing the current
	// position; Key/Value/Tag read from here rather than re-decoding.
	cur RecordView
	err error
}

// NewMergedIterator constructs a MergedIterator over batch's pending
// mutations in columnID, layered on top of base. Returns ErrUnsupported if
// the batch was not opened with Options.OverwriteKey.
func NewMergedIterator(batchLog *RecordLog, b *IndexedBatch, columnID uint32, base BaseIterator) (*MergedIterator, error) {
	if !b.opts.OverwriteKey {
		return nil, errors.Wrapf(ErrUnsupported, "NewMergedIterator requires OverwriteKey")
	}
	return &MergedIterator{
		batch: newBatchIterator(batchLog, b.index, columnID),
		base:  base,
		cmp:   b.columnCompare(columnID),
	}, nil
}

// SeekToFirst positions the iterator at the smallest key present in
// either side.
func (m *MergedIterator) SeekToFirst() bool {
	m.dir = dirForward
	m.batch.SeekToFirst()
	m.base.SeekToFirst()
	return m.updateCurrent()
}

// SeekToLast positions the iterator at the largest key present in either
// side.
func (m *MergedIterator) SeekToLast() bool {
	m.dir = dirReverse
	m.batch.SeekToLast()
	m.base.SeekToLast()
	return m.updateCurrent()
}

// SeekGE positions the iterator at the smallest key >= key.
func (m *MergedIterator) SeekGE(key []byte) bool {
	m.dir = dirForward
	m.batch.Seek(key)
	m.base.SeekGE(key)
	return m.updateCurrent()
}

// SeekForPrev positions the iterator at the largest key <= key.
func (m *MergedIterator) SeekForPrev(key []byte) bool {
	m.dir = dirReverse
	m.batch.SeekForPrev(key)
	m.base.SeekForPrev(key)
	return m.updateCurrent()
}

// updateCurrent picks which side is "current" following a seek or
// direction change: the batch side wins ties, matching overwrite-mode's
// requirement that a pending mutation shadow the base entry for the same
// key (spec §4.5, "precedence"). A batch entry that ties with a base key
// always consumes that base entry too — the base's copy of the key is
// entirely superseded by the batch's, whether the batch holds a Put, a
// Merge, or a tombstone.
func (m *MergedIterator) updateCurrent() bool {
	for {
		batchValid := m.batch.Valid()
		baseValid := m.base.Valid()
		if !batchValid && !baseValid {
			m.current = sideNone
			return false
		}

		var use mergeSide
		var shadowsBase bool
		switch {
		case !baseValid:
			use = sideBatch
		case !batchValid:
			use = sideBase
		default:
			rv, err := m.batch.Entry()
			if err != nil {
				m.err = err
				m.current = sideNone
				return false
			}
			c := m.columnCompare()(rv.Key, m.base.Key())
			switch {
			case c < 0:
				use = pick(m.dir, sideBatch, sideBase)
			case c > 0:
				use = pick(m.dir, sideBase, sideBatch)
			default:
				use = sideBatch
				shadowsBase = true
			}
		}

		if use == sideBatch {
			rv, err := m.batch.Entry()
			if err != nil {
				m.err = err
				m.current = sideNone
				return false
			}
			if shadowsBase {
				m.advanceBase()
			}
			if rv.Tag == TagDelete || rv.Tag == TagSingleDelete {
				m.advanceBatch()
				continue
			}
			m.cur = rv
		}

		m.current = use
		return true
	}
}

func (m *MergedIterator) columnCompare() Compare {
	if m.cmp != nil {
		return m.cmp
	}
	return DefaultCompare
}

func pick(dir direction, forward, reverse mergeSide) mergeSide {
	if dir == dirForward {
		return forward
	}
	return reverse
}

// advanceBatch and advanceBase step their respective side one position in
// whichever direction the iterator is currently moving — updateCurrent
// calls these to consume a tombstone or a base key shadowed by a batch
// entry, and during a reverse scan that consumption must walk backward
// too, or it mis-positions both sides (mirroring mergingIter's own
// dir-conditioned stepping in the teacher repository).
func (m *MergedIterator) advanceBatch() {
	if m.dir == dirReverse {
		m.batch.Prev()
	} else {
		m.batch.Next()
	}
}

func (m *MergedIterator) advanceBase() {
	if m.dir == dirReverse {
		m.base.Prev()
	} else {
		m.base.Next()
	}
}

// Next advances the iterator, handling a direction flip from reverse to
// forward by re-synchronizing whichever side was left behind (mirroring
// mergingIter.switchToMinHeap/switchToMaxHeap in the teacher repository,
// reduced to the two-way case).
func (m *MergedIterator) Next() bool {
	if m.dir == dirReverse {
		m.switchToForward()
	}
	switch m.current {
	case sideBatch:
		m.batch.Next()
	case sideBase:
		m.base.Next()
	}
	return m.updateCurrent()
}

// Prev moves the iterator backward, re-synchronizing on a direction flip
// from forward to reverse.
func (m *MergedIterator) Prev() bool {
	if m.dir == dirForward {
		m.switchToReverse()
	}
	switch m.current {
	case sideBatch:
		m.batch.Prev()
	case sideBase:
		m.base.Prev()
	}
	return m.updateCurrent()
}

// switchToForward re-seeks the non-current side forward past the current
// key, so that a subsequent Next() sees both sides positioned no earlier
// than the current key.
func (m *MergedIterator) switchToForward() {
	key := m.Key()
	if key != nil {
		if m.current != sideBatch {
			m.batch.Seek(key)
			if m.batch.Valid() {
				if rv, err := m.batch.Entry(); err == nil && m.columnCompare()(rv.Key, key) == 0 {
					m.batch.Next()
				}
			}
		}
		if m.current != sideBase {
			m.base.SeekGE(key)
			if m.base.Valid() && m.columnCompare()(m.base.Key(), key) == 0 {
				m.base.Next()
			}
		}
	}
	m.dir = dirForward
}

// switchToReverse re-seeks the non-current side backward past the current
// key, the mirror image of switchToForward.
func (m *MergedIterator) switchToReverse() {
	key := m.Key()
	if key != nil {
		if m.current != sideBatch {
			m.batch.SeekForPrev(key)
			if m.batch.Valid() {
				if rv, err := m.batch.Entry(); err == nil && m.columnCompare()(rv.Key, key) == 0 {
					m.batch.Prev()
				}
			}
		}
		if m.current != sideBase {
			m.base.SeekForPrev(key)
			if m.base.Valid() && m.columnCompare()(m.base.Key(), key) == 0 {
				m.base.Prev()
			}
		}
	}
	m.dir = dirReverse
}

// Valid reports whether the iterator is positioned at an entry.
func (m *MergedIterator) Valid() bool { return m.current != sideNone && m.err == nil }

// Key returns the current entry's key.
func (m *MergedIterator) Key() []byte {
	switch m.current {
	case sideBatch:
		return m.cur.Key
	case sideBase:
		return m.base.Key()
	default:
		return nil
	}
}

// Value returns the current entry's value. For a batch-side entry tagged
// TagMerge, this is the raw newest operand, unresolved against any prior
// value (see Tag).
func (m *MergedIterator) Value() []byte {
	switch m.current {
	case sideBatch:
		return m.cur.Value
	case sideBase:
		return m.base.Value()
	default:
		return nil
	}
}

// Tag reports the kind of the current entry: TagPut for every base-side
// entry (the store's view is already a resolved value), and the batch
// record's own tag for a batch-side entry: TagPut, TagDeleteRange, or
// TagMerge for a pending merge whose operand Value has not been resolved
// against any existing value.
func (m *MergedIterator) Tag() Tag {
	switch m.current {
	case sideBatch:
		return m.cur.Tag
	case sideBase:
		return TagPut
	default:
		return TagPut
	}
}

// Error returns the first error encountered by either side.
func (m *MergedIterator) Error() error {
	if m.err != nil {
		return m.err
	}
	if err := m.batch.Error(); err != nil {
		return err
	}
	return m.base.Error()
}

// Close releases the batch side's resources and returns its error, or
// else the base side's Error. The base iterator itself is not closed.
func (m *MergedIterator) Close() error {
	err := m.batch.Close()
	if berr := m.base.Error(); berr != nil && err == nil {
		err = berr
	}
	return err
}
