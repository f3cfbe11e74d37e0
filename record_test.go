// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordLogAppendAndRead(t *testing.T) {
	log := NewRecordLog(0)

	offset, keyOffset, keyLength, err := log.AppendRecord(TagPut, 3, []byte("hello"), []byte("world"), nil)
	require.NoError(t, err)
	require.Equal(t, uint32(0), offset)
	require.Equal(t, []byte("hello"), log.KeyBytes(keyOffset, keyLength))

	rec, next, err := log.ReadRecord(offset)
	require.NoError(t, err)
	require.Equal(t, TagPut, rec.Tag)
	require.Equal(t, uint32(3), rec.ColumnID)
	require.Equal(t, []byte("hello"), rec.Key)
	require.Equal(t, []byte("world"), rec.Value)
	require.Equal(t, uint32(log.Size()), next)
}

func TestRecordLogMultipleRecordsSequentialScan(t *testing.T) {
	log := NewRecordLog(0)
	_, _, _, err := log.AppendRecord(TagPut, 0, []byte("a"), []byte("1"), nil)
	require.NoError(t, err)
	_, _, _, err = log.AppendRecord(TagDelete, 0, []byte("b"), nil, nil)
	require.NoError(t, err)
	_, _, _, err = log.AppendRecord(TagLogData, 0, nil, nil, []byte("note"))
	require.NoError(t, err)

	var tags []Tag
	r := log.Reader(0)
	for {
		rec, _, ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		tags = append(tags, rec.Tag)
	}
	require.Equal(t, []Tag{TagPut, TagDelete, TagLogData}, tags)
	require.Equal(t, uint32(3), log.Count())
}

func TestRecordLogChecksumDetectsCorruption(t *testing.T) {
	log := NewRecordLog(0)
	offset, _, _, err := log.AppendRecord(TagPut, 0, []byte("k"), []byte("v"), nil)
	require.NoError(t, err)

	log.buf[len(log.buf)-1] ^= 0xff // flip a byte inside the checksum trailer

	_, _, err = log.ReadRecord(offset)
	require.ErrorIs(t, err, ErrCorruption)
}

func TestRecordLogSavePointRollback(t *testing.T) {
	log := NewRecordLog(0)
	_, _, _, err := log.AppendRecord(TagPut, 0, []byte("a"), []byte("1"), nil)
	require.NoError(t, err)

	log.SetSavePoint()
	_, _, _, err = log.AppendRecord(TagPut, 0, []byte("b"), []byte("2"), nil)
	require.NoError(t, err)
	sizeBeforeRollback := log.Size()

	require.NoError(t, log.RollbackToSavePoint())
	require.Less(t, log.Size(), sizeBeforeRollback)

	require.Error(t, log.RollbackToSavePoint())
}

func TestRecordLogPopSavePoint(t *testing.T) {
	log := NewRecordLog(0)
	log.SetSavePoint()
	_, _, _, err := log.AppendRecord(TagPut, 0, []byte("a"), []byte("1"), nil)
	require.NoError(t, err)

	require.NoError(t, log.PopSavePoint())
	require.Error(t, log.PopSavePoint())
	// Popping discards the save point without rewinding the log.
	require.Equal(t, uint32(1), log.Count())
}

func TestRecordLogClear(t *testing.T) {
	log := NewRecordLog(0)
	_, _, _, err := log.AppendRecord(TagPut, 0, []byte("a"), []byte("1"), nil)
	require.NoError(t, err)
	log.Clear()
	require.Equal(t, 0, log.Size())
	require.Equal(t, uint32(0), log.Count())
	require.Error(t, log.RollbackToSavePoint())
}

func TestTagIsKeyBearing(t *testing.T) {
	require.True(t, TagPut.IsKeyBearing())
	require.True(t, TagDeleteRange.IsKeyBearing())
	require.False(t, TagLogData.IsKeyBearing())
	require.False(t, TagCommit.IsKeyBearing())
}
