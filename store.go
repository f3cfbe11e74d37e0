// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import "github.com/cockroachdb/errors"

// ReadOptions carries caller-supplied read options through to the
// underlying Store. It is opaque to this package.
type ReadOptions interface{}

// Store is the narrow contract this package consumes from the external
// key-value store a batch will eventually be committed to (spec §6). The
// store's own physical format, compaction, and persistence are out of
// scope for this package.
type Store interface {
	// Get returns the value for key in column, or ErrNotFound.
	Get(opts ReadOptions, column uint32, key []byte) ([]byte, error)

	// NewIterator returns a BaseIterator over column's point-in-time
	// view.
	NewIterator(opts ReadOptions, column uint32) BaseIterator

	// ColumnUserComparator returns the comparator registered for column,
	// or nil if the column uses the batch's default comparator.
	ColumnUserComparator(column uint32) Compare

	// ColumnMergeOperator returns the merge operator registered for
	// column, or nil if merges on that column cannot be resolved.
	ColumnMergeOperator(column uint32) MergeOperator
}

// BaseIterator is the store-provided iterator a MergedIterator overlays
// the batch's delta on top of.
type BaseIterator interface {
	SeekToFirst() bool
	SeekToLast() bool
	SeekGE(key []byte) bool
	SeekForPrev(key []byte) bool
	Next() bool
	Prev() bool
	Valid() bool
	Key() []byte
	Value() []byte
	Error() error
}

// MergeOperator resolves a chain of merge operands (optionally seeded by
// an existing base value) into a single value. It must be associative:
// Merge(k, Merge(k, v0, [o0]), [o1]) == Merge(k, v0, [o0, o1]).
type MergeOperator interface {
	// FullMerge combines an optional existing value with an ordered list
	// of merge operands (oldest first) into a final value.
	FullMerge(key []byte, existing []byte, hasExisting bool, operands [][]byte) ([]byte, error)

	// Name identifies the merge operator, analogous to
	// internal/base.Merger.Name in the teacher repository.
	Name() string
}

// IntAddMergeOperator is a merge operator over decimal-ASCII integers,
// used in tests and as a ready-made example: each operand is parsed as a
// base-10 integer and the result is their sum (plus the existing value,
// if any), formatted back to decimal ASCII. Matches the "integer-sum
// merge operator" used throughout spec §8's end-to-end scenarios.
type IntAddMergeOperator struct{}

// Name implements MergeOperator.
func (IntAddMergeOperator) Name() string { return "indexedbatch.intadd" }

// FullMerge implements MergeOperator.
func (IntAddMergeOperator) FullMerge(key []byte, existing []byte, hasExisting bool, operands [][]byte) ([]byte, error) {
	total := int64(0)
	if hasExisting {
		v, err := parseInt(existing)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing existing value for key %q", key)
		}
		total = v
	}
	for _, op := range operands {
		v, err := parseInt(op)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing merge operand for key %q", key)
		}
		total += v
	}
	return formatInt(total), nil
}

func parseInt(b []byte) (int64, error) {
	neg := false
	i := 0
	if len(b) > 0 && (b[0] == '+' || b[0] == '-') {
		neg = b[0] == '-'
		i = 1
	}
	if i == len(b) {
		return 0, errors.Newf("empty integer operand %q", b)
	}
	var v int64
	for ; i < len(b); i++ {
		if b[i] < '0' || b[i] > '9' {
			return 0, errors.Newf("invalid integer operand %q", b)
		}
		v = v*10 + int64(b[i]-'0')
	}
	if neg {
		v = -v
	}
	return v, nil
}

func formatInt(v int64) []byte {
	if v == 0 {
		return []byte("0")
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return buf[i:]
}
