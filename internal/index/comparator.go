// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package index

import "bytes"

// Compare returns -1, 0, or +1 depending on whether a is 'less than',
// 'equal to', or 'greater than' b. Mirrors
// github.com/cockroachdb/pebble/internal/base.Compare.
type Compare func(a, b []byte) int

// DefaultCompare is the byte-lexicographic comparator used for any column
// without an explicitly registered comparator.
var DefaultCompare Compare = bytes.Compare

// KeySource resolves an Entry's (KeyOffset, KeyLength) pair into the
// actual key bytes, backed in practice by a batch's RecordLog.
type KeySource interface {
	KeyBytes(offset, length uint32) []byte
}

// Comparator resolves two Entry values into an ordering by
// (column_id, user_key), delegating user-key comparison to a per-column
// comparator (spec §4.2, "EntryComparator").
type Comparator struct {
	source   KeySource
	fallback Compare
	columns  map[uint32]Compare
}

// NewComparator constructs a Comparator reading keys from source and
// falling back to fallback for any column without a registered
// comparator.
func NewComparator(source KeySource, fallback Compare) *Comparator {
	if fallback == nil {
		fallback = DefaultCompare
	}
	return &Comparator{source: source, fallback: fallback}
}

// SetColumnCompare registers a user comparator for a column. Read-mostly:
// intended to be called once, before the column is first written to.
func (c *Comparator) SetColumnCompare(columnID uint32, cmp Compare) {
	if c.columns == nil {
		c.columns = make(map[uint32]Compare)
	}
	c.columns[columnID] = cmp
}

func (c *Comparator) columnCompare(columnID uint32) Compare {
	if cmp, ok := c.columns[columnID]; ok {
		return cmp
	}
	return c.fallback
}

// KeyOf returns the user key bytes for a non-sentinel entry.
func (c *Comparator) KeyOf(e *Entry) []byte {
	if e.Key != nil {
		return e.Key
	}
	return c.source.KeyBytes(e.KeyOffset, e.KeyLength)
}

// EqualKey reports whether a and b denote the same (column_id, user_key),
// ignoring allocation sequence and sentinel flags. Used by overwrite-mode
// update-in-place to locate the existing entry, if any, for a key.
func (c *Comparator) EqualKey(a, b *Entry) bool {
	if a.ColumnID != b.ColumnID {
		return false
	}
	return c.columnCompare(a.ColumnID)(c.KeyOf(a), c.KeyOf(b)) == 0
}

// Compare orders two entries by (column_id, user_key), treating
// SentinelMin/SentinelMax flags as -infinity/+infinity within their
// column, and breaking ties between equal user keys by allocation
// sequence (oldest first) — relevant only in non-overwrite mode, where
// more than one live entry may share a key.
func (c *Comparator) Compare(a, b *Entry) int {
	if a.ColumnID != b.ColumnID {
		if a.ColumnID < b.ColumnID {
			return -1
		}
		return 1
	}

	ra, rb := a.Flags.rank(), b.Flags.rank()
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if ra != Normal.rank() {
		// Both are the same sentinel kind within this column.
		return 0
	}

	if cmp := c.columnCompare(a.ColumnID)(c.KeyOf(a), c.KeyOf(b)); cmp != 0 {
		return cmp
	}
	switch {
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	default:
		return 0
	}
}
