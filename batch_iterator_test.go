// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBatchIteratorForwardAndBackward(t *testing.T) {
	b := Open(nil)
	require.NoError(t, b.Put([]byte("banana"), []byte("2")))
	require.NoError(t, b.Put([]byte("apple"), []byte("1")))
	require.NoError(t, b.Put([]byte("cherry"), []byte("3")))

	it := b.NewIterator()
	defer it.Close()

	var keys []string
	for ok := it.SeekToFirst(); ok; ok = it.Next() {
		rv, err := it.Entry()
		require.NoError(t, err)
		keys = append(keys, string(rv.Key))
	}
	require.Equal(t, []string{"apple", "banana", "cherry"}, keys)

	keys = nil
	for ok := it.SeekToLast(); ok; ok = it.Prev() {
		rv, err := it.Entry()
		require.NoError(t, err)
		keys = append(keys, string(rv.Key))
	}
	require.Equal(t, []string{"cherry", "banana", "apple"}, keys)
}

func TestBatchIteratorScopedToColumn(t *testing.T) {
	b := Open(nil)
	require.NoError(t, b.PutColumn(0, []byte("k0"), []byte("v0")))
	require.NoError(t, b.PutColumn(1, []byte("k1"), []byte("v1")))

	it0 := b.NewIteratorColumn(0)
	defer it0.Close()
	require.True(t, it0.SeekToFirst())
	rv, err := it0.Entry()
	require.NoError(t, err)
	require.Equal(t, "k0", string(rv.Key))
	require.False(t, it0.Next())

	it1 := b.NewIteratorColumn(1)
	defer it1.Close()
	require.True(t, it1.SeekToFirst())
	rv, err = it1.Entry()
	require.NoError(t, err)
	require.Equal(t, "k1", string(rv.Key))
}

func TestBatchIteratorSeekAndSeekForPrev(t *testing.T) {
	b := Open(nil)
	for _, k := range []string{"a", "c", "e", "g"} {
		require.NoError(t, b.Put([]byte(k), []byte(k)))
	}

	it := b.NewIterator()
	defer it.Close()

	require.True(t, it.Seek([]byte("d")))
	rv, err := it.Entry()
	require.NoError(t, err)
	require.Equal(t, "e", string(rv.Key))

	require.True(t, it.SeekForPrev([]byte("d")))
	rv, err = it.Entry()
	require.NoError(t, err)
	require.Equal(t, "c", string(rv.Key))

	require.False(t, it.Seek([]byte("z")))
}

func TestBatchIteratorSeekForPrevMatchesExactKey(t *testing.T) {
	b := Open(nil)
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	require.NoError(t, b.Put([]byte("b"), []byte("2")))
	require.NoError(t, b.Put([]byte("c"), []byte("3")))

	it := b.NewIterator()
	defer it.Close()

	require.True(t, it.SeekForPrev([]byte("b")))
	rv, err := it.Entry()
	require.NoError(t, err)
	require.Equal(t, "b", string(rv.Key))
}

func TestBatchIteratorOverwriteModeReflectsLatestWrite(t *testing.T) {
	b := Open(&Options{OverwriteKey: true})
	require.NoError(t, b.Put([]byte("k"), []byte("v1")))
	require.NoError(t, b.Put([]byte("k"), []byte("v2")))

	it := b.NewIterator()
	defer it.Close()
	require.True(t, it.SeekToFirst())
	rv, err := it.Entry()
	require.NoError(t, err)
	require.Equal(t, "v2", string(rv.Value))
	require.False(t, it.Next())
}
