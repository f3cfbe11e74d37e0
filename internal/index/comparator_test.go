// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package index

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSource struct{ buf []byte }

func (f fakeSource) KeyBytes(offset, n uint32) []byte { return f.buf[offset : offset+n] }

func TestComparatorOrdersByColumnThenKey(t *testing.T) {
	src := fakeSource{buf: []byte("aaabbbccc")}
	cmp := NewComparator(src, bytes.Compare)

	lo := &Entry{ColumnID: 0, KeyOffset: 0, KeyLength: 3} // "aaa"
	hi := &Entry{ColumnID: 1, KeyOffset: 3, KeyLength: 3} // "bbb", different column

	require.Negative(t, cmp.Compare(lo, hi))
	require.Positive(t, cmp.Compare(hi, lo))
	require.Zero(t, cmp.Compare(lo, lo))
}

func TestComparatorSentinelRank(t *testing.T) {
	src := fakeSource{buf: []byte("mmm")}
	cmp := NewComparator(src, bytes.Compare)

	min := &Entry{ColumnID: 5, Flags: SentinelMin}
	mid := &Entry{ColumnID: 5, KeyOffset: 0, KeyLength: 3}
	max := &Entry{ColumnID: 5, Flags: SentinelMax}

	require.Negative(t, cmp.Compare(min, mid))
	require.Negative(t, cmp.Compare(mid, max))
	require.Negative(t, cmp.Compare(min, max))
}

func TestComparatorSeqTieBreak(t *testing.T) {
	src := fakeSource{buf: []byte("key")}
	cmp := NewComparator(src, bytes.Compare)

	a := &Entry{ColumnID: 0, KeyOffset: 0, KeyLength: 3, seq: 1}
	b := &Entry{ColumnID: 0, KeyOffset: 0, KeyLength: 3, seq: 2}

	require.Negative(t, cmp.Compare(a, b))
	require.Positive(t, cmp.Compare(b, a))
}

func TestComparatorPerColumnOverride(t *testing.T) {
	src := fakeSource{buf: []byte("ba")}
	cmp := NewComparator(src, bytes.Compare)
	// Column 7 orders in reverse byte order.
	cmp.SetColumnCompare(7, func(a, b []byte) int { return bytes.Compare(b, a) })

	b := &Entry{ColumnID: 7, KeyOffset: 0, KeyLength: 1} // "b"
	a := &Entry{ColumnID: 7, KeyOffset: 1, KeyLength: 1} // "a"

	// Under the reversed comparator, "b" sorts before "a".
	require.Negative(t, cmp.Compare(b, a))
}

func TestEqualKeyIgnoresSeqAndSentinel(t *testing.T) {
	src := fakeSource{buf: []byte("key")}
	cmp := NewComparator(src, bytes.Compare)

	a := &Entry{ColumnID: 0, KeyOffset: 0, KeyLength: 3, seq: 10}
	b := &Entry{ColumnID: 0, KeyOffset: 0, KeyLength: 3, seq: 20}
	other := &Entry{ColumnID: 1, KeyOffset: 0, KeyLength: 3, seq: 10}

	require.True(t, cmp.EqualKey(a, b))
	require.False(t, cmp.EqualKey(a, other))
}

func TestKeyOfPrefersInlineProbeKey(t *testing.T) {
	src := fakeSource{buf: []byte("ignored")}
	cmp := NewComparator(src, bytes.Compare)
	probe := NewProbe(3, []byte("literal"), Normal)
	require.Equal(t, []byte("literal"), cmp.KeyOf(probe))
}
