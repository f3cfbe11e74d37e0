// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package index

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// memSource is a KeySource backed by a plain byte slice, standing in for
// a batch's RecordLog in tests that only exercise the index.
type memSource struct{ buf []byte }

func (s *memSource) put(key string) (offset, length uint32) {
	offset = uint32(len(s.buf))
	s.buf = append(s.buf, key...)
	return offset, uint32(len(key))
}

func (s *memSource) KeyBytes(offset, n uint32) []byte { return s.buf[offset : offset+n] }

// runOrderedIndexSuite exercises an OrderedIndex implementation's
// Insert/iteration contract identically regardless of backend, matching
// how the teacher's own skl_test.go validates batchskl.Skiplist against
// plain sequential semantics.
func runOrderedIndexSuite(t *testing.T, newIdx func(cmp *Comparator) OrderedIndex) {
	t.Run("insert and iterate forward", func(t *testing.T) {
		src := &memSource{}
		cmp := NewComparator(src, bytes.Compare)
		idx := newIdx(cmp)

		keys := []string{"banana", "apple", "cherry", "date"}
		arena := NewArena()
		for _, k := range keys {
			off, n := src.put(k)
			e := arena.Alloc(0, off, off, n, Normal)
			require.NoError(t, idx.Insert(e))
		}
		require.Equal(t, 4, idx.Len())

		it := idx.NewIter()
		defer it.Close()
		var got []string
		for ok := it.First(); ok; ok = it.Next() {
			got = append(got, string(cmp.KeyOf(it.Entry())))
		}
		require.Equal(t, []string{"apple", "banana", "cherry", "date"}, got)
	})

	t.Run("iterate backward", func(t *testing.T) {
		src := &memSource{}
		cmp := NewComparator(src, bytes.Compare)
		idx := newIdx(cmp)
		arena := NewArena()
		for _, k := range []string{"b", "a", "c"} {
			off, n := src.put(k)
			require.NoError(t, idx.Insert(arena.Alloc(0, off, off, n, Normal)))
		}

		it := idx.NewIter()
		defer it.Close()
		var got []string
		for ok := it.Last(); ok; ok = it.Prev() {
			got = append(got, string(cmp.KeyOf(it.Entry())))
		}
		require.Equal(t, []string{"c", "b", "a"}, got)
	})

	t.Run("seek ge and lt", func(t *testing.T) {
		src := &memSource{}
		cmp := NewComparator(src, bytes.Compare)
		idx := newIdx(cmp)
		arena := NewArena()
		for _, k := range []string{"a", "c", "e", "g"} {
			off, n := src.put(k)
			require.NoError(t, idx.Insert(arena.Alloc(0, off, off, n, Normal)))
		}

		it := idx.NewIter()
		defer it.Close()

		require.True(t, it.SeekGE(NewProbe(0, []byte("d"), Normal)))
		require.Equal(t, "e", string(cmp.KeyOf(it.Entry())))

		require.True(t, it.SeekGE(NewProbe(0, []byte("c"), Normal)))
		require.Equal(t, "c", string(cmp.KeyOf(it.Entry())))

		require.False(t, it.SeekGE(NewProbe(0, []byte("z"), Normal)))

		require.True(t, it.SeekLT(NewProbe(0, []byte("d"), Normal)))
		require.Equal(t, "c", string(cmp.KeyOf(it.Entry())))

		require.False(t, it.SeekLT(NewProbe(0, []byte("a"), Normal)))
	})

	t.Run("sentinel bounds scope a column", func(t *testing.T) {
		src := &memSource{}
		cmp := NewComparator(src, bytes.Compare)
		idx := newIdx(cmp)
		arena := NewArena()
		off, n := src.put("k1")
		require.NoError(t, idx.Insert(arena.Alloc(0, off, off, n, Normal)))
		off, n = src.put("k2")
		require.NoError(t, idx.Insert(arena.Alloc(1, off, off, n, Normal)))

		it := idx.NewIter()
		defer it.Close()

		require.True(t, it.SeekGE(NewProbe(0, nil, SentinelMin)))
		require.Equal(t, uint32(0), it.Entry().ColumnID)

		require.True(t, it.SeekGE(NewProbe(1, nil, SentinelMin)))
		require.Equal(t, uint32(1), it.Entry().ColumnID)
	})

	t.Run("duplicate keys preserve insertion order", func(t *testing.T) {
		src := &memSource{}
		cmp := NewComparator(src, bytes.Compare)
		idx := newIdx(cmp)
		arena := NewArena()
		for i := 0; i < 3; i++ {
			off, n := src.put("dup")
			require.NoError(t, idx.Insert(arena.Alloc(0, off, off, n, Normal)))
		}

		it := idx.NewIter()
		defer it.Close()
		var seqs []uint64
		for ok := it.First(); ok; ok = it.Next() {
			seqs = append(seqs, it.Entry().Seq())
		}
		require.Equal(t, []uint64{0, 1, 2}, seqs)
	})
}
