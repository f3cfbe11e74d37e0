// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	pkgerrors "github.com/pkg/errors"
)

// Tag identifies the kind of a record in a RecordLog.
type Tag uint8

// Recognized record tags. Only the first five carry a key and participate
// in the secondary index; the rest are opaque control/transaction markers
// that the index skips over.
const (
	TagPut Tag = iota
	TagDelete
	TagSingleDelete
	TagMerge
	TagDeleteRange
	TagLogData
	TagBeginPrepare
	TagEndPrepare
	TagCommit
	TagRollback
	TagNoop
	tagMax = TagNoop
)

// IsKeyBearing reports whether records of this tag carry a user key and
// should be indexed.
func (t Tag) IsKeyBearing() bool {
	switch t {
	case TagPut, TagDelete, TagSingleDelete, TagMerge, TagDeleteRange:
		return true
	default:
		return false
	}
}

func (t Tag) String() string {
	switch t {
	case TagPut:
		return "PUT"
	case TagDelete:
		return "DEL"
	case TagSingleDelete:
		return "SINGLEDEL"
	case TagMerge:
		return "MERGE"
	case TagDeleteRange:
		return "DELRANGE"
	case TagLogData:
		return "LOGDATA"
	case TagBeginPrepare:
		return "BEGINPREPARE"
	case TagEndPrepare:
		return "ENDPREPARE"
	case TagCommit:
		return "COMMIT"
	case TagRollback:
		return "ROLLBACK"
	case TagNoop:
		return "NOOP"
	default:
		return "UNKNOWN"
	}
}

const checksumLen = 8

// Record is a decoded entry from a RecordLog. KeyOffset/KeyLength locate
// Key within the log's backing buffer, letting callers that need to
// re-index a record (IndexedBatch.RebuildIndex) do so without re-deriving
// offsets from the decoded byte slice.
type Record struct {
	Tag       Tag
	ColumnID  uint32
	Key       []byte
	KeyOffset uint32
	KeyLength uint32
	Value     []byte
	Aux       []byte
}

// RecordLog is a growable, append-only byte buffer of encoded mutation
// records, bit-exact to the wire format the upstream store expects when
// the log is shipped to it as a single batch commit. It supports
// save-point rewind, matching RocksDB/Pebble's WriteBatch save-point
// stack.
type RecordLog struct {
	buf        []byte
	count      uint32
	savePoints []int
}

// NewRecordLog returns an empty RecordLog with the given initial capacity
// reserved.
func NewRecordLog(reservedBytes int) *RecordLog {
	if reservedBytes < 0 {
		reservedBytes = 0
	}
	return &RecordLog{buf: make([]byte, 0, reservedBytes)}
}

// Size returns the current size of the log in bytes.
func (l *RecordLog) Size() int { return len(l.buf) }

// Data returns the raw bytes of the log. The caller must not modify the
// returned slice.
func (l *RecordLog) Data() []byte { return l.buf }

// Count returns the number of records appended to the log (including
// non-key-bearing control records).
func (l *RecordLog) Count() uint32 { return l.count }

// KeyBytes returns the length-byte slice of the log at [offset, offset+n).
// IndexEntry.KeyOffset/KeyLength index directly into this slice so that
// key comparisons never need to re-decode a record's tag or varint
// headers.
func (l *RecordLog) KeyBytes(offset, n uint32) []byte {
	return l.buf[offset : offset+n]
}

// AppendRecord appends an encoded record to the log and returns the
// offset of the record's start, together with the offset and length of
// the user key within the log (valid only when tag.IsKeyBearing(); for
// TagDeleteRange, key is the range's begin key and value is its end key).
func (l *RecordLog) AppendRecord(tag Tag, columnID uint32, key, value, aux []byte) (offset, keyOffset, keyLength uint32, err error) {
	start := len(l.buf)
	l.buf = append(l.buf, byte(tag))

	if tag.IsKeyBearing() {
		l.buf = appendUvarint(l.buf, uint64(columnID))
		l.buf = appendUvarint(l.buf, uint64(len(key)))
		keyOffset = uint32(len(l.buf))
		keyLength = uint32(len(key))
		l.buf = append(l.buf, key...)
	}

	switch tag {
	case TagPut, TagDeleteRange:
		l.buf = appendUvarint(l.buf, uint64(len(value)))
		l.buf = append(l.buf, value...)
	case TagMerge:
		// value holds the newest pending operand; aux holds the
		// encodeMergeAux blob (base-value state byte, optional base value,
		// then every earlier operand in the chain), or is empty for the
		// first merge staged for a key (see IndexedBatch.mutate's
		// duplicate-merge chaining).
		l.buf = appendUvarint(l.buf, uint64(len(value)))
		l.buf = append(l.buf, value...)
		l.buf = appendUvarint(l.buf, uint64(len(aux)))
		l.buf = append(l.buf, aux...)
	case TagLogData:
		l.buf = appendUvarint(l.buf, uint64(len(aux)))
		l.buf = append(l.buf, aux...)
	}

	sum := xxhash.Sum64(l.buf[start:])
	var sumBuf [checksumLen]byte
	binary.LittleEndian.PutUint64(sumBuf[:], sum)
	l.buf = append(l.buf, sumBuf[:]...)

	l.count++
	return uint32(start), keyOffset, keyLength, nil
}

// ReadRecord decodes the record starting at offset, validating its
// checksum, and returns the offset of the next record.
func (l *RecordLog) ReadRecord(offset uint32) (rec Record, next uint32, err error) {
	if int(offset) >= len(l.buf) {
		return Record{}, 0, errors.Wrap(ErrCorruption, "offset out of range")
	}
	if len(l.buf)-int(offset) < 1+checksumLen {
		return Record{}, 0, errors.Wrap(ErrCorruption, "truncated record")
	}
	pos := int(offset)
	tag := Tag(l.buf[pos])
	if tag > tagMax {
		return Record{}, 0, pkgerrors.Wrapf(ErrCorruption, "invalid tag 0x%x", l.buf[pos])
	}
	pos++
	rec.Tag = tag

	if tag.IsKeyBearing() {
		columnID, newPos, ok := decodeUvarintAt(l.buf, pos)
		if !ok {
			return Record{}, 0, pkgerrors.Wrap(ErrCorruption, "decoding column id")
		}
		pos = newPos
		rec.ColumnID = uint32(columnID)

		key, keyOffset, newPos, ok := decodeStrAt(l.buf, pos)
		if !ok {
			return Record{}, 0, pkgerrors.Wrap(ErrCorruption, "decoding key")
		}
		rec.Key = key
		rec.KeyOffset = uint32(keyOffset)
		rec.KeyLength = uint32(len(key))
		pos = newPos
	}

	switch tag {
	case TagPut, TagDeleteRange:
		value, _, newPos, ok := decodeStrAt(l.buf, pos)
		if !ok {
			return Record{}, 0, pkgerrors.Wrapf(ErrCorruption, "decoding %s value", tag)
		}
		rec.Value = value
		pos = newPos
	case TagMerge:
		value, _, newPos, ok := decodeStrAt(l.buf, pos)
		if !ok {
			return Record{}, 0, pkgerrors.Wrap(ErrCorruption, "decoding merge operand")
		}
		rec.Value = value
		pos = newPos
		aux, _, newPos, ok := decodeStrAt(l.buf, pos)
		if !ok {
			return Record{}, 0, pkgerrors.Wrap(ErrCorruption, "decoding merge operand chain")
		}
		rec.Aux = aux
		pos = newPos
	case TagLogData:
		aux, _, newPos, ok := decodeStrAt(l.buf, pos)
		if !ok {
			return Record{}, 0, pkgerrors.Wrap(ErrCorruption, "decoding log data")
		}
		rec.Aux = aux
		pos = newPos
	}

	if len(l.buf)-pos < checksumLen {
		return Record{}, 0, errors.Wrap(ErrCorruption, "truncated checksum")
	}
	wantSum := binary.LittleEndian.Uint64(l.buf[pos : pos+checksumLen])
	gotSum := xxhash.Sum64(l.buf[offset:pos])
	if gotSum != wantSum {
		return Record{}, 0, errors.Wrap(ErrCorruption, "checksum mismatch")
	}

	return rec, uint32(pos + checksumLen), nil
}

// Reader sequentially scans the records of a RecordLog starting at a given
// offset.
type Reader struct {
	log    *RecordLog
	offset uint32
}

// Reader returns a sequential Reader over the log starting at offset.
func (l *RecordLog) Reader(offset uint32) *Reader {
	return &Reader{log: l, offset: offset}
}

// Next returns the next record and its offset, or ok=false once the log is
// exhausted.
func (r *Reader) Next() (rec Record, offset uint32, ok bool, err error) {
	if int(r.offset) >= len(r.log.buf) {
		return Record{}, 0, false, nil
	}
	offset = r.offset
	rec, next, err := r.log.ReadRecord(r.offset)
	if err != nil {
		return Record{}, 0, false, err
	}
	r.offset = next
	return rec, offset, true, nil
}

// SetSavePoint records the current size of the log as a rewind point,
// pushing it onto a stack so that save points may be nested.
func (l *RecordLog) SetSavePoint() {
	l.savePoints = append(l.savePoints, len(l.buf))
}

// RollbackToSavePoint truncates the log back to the most recently set save
// point and pops it from the stack.
func (l *RecordLog) RollbackToSavePoint() error {
	if len(l.savePoints) == 0 {
		return errors.Wrap(ErrUnsupported, "no save point to rollback to")
	}
	n := len(l.savePoints) - 1
	point := l.savePoints[n]
	l.savePoints = l.savePoints[:n]
	l.Truncate(point)
	return nil
}

// PopSavePoint discards the most recently set save point without rewinding
// the log.
func (l *RecordLog) PopSavePoint() error {
	if len(l.savePoints) == 0 {
		return errors.Wrap(ErrUnsupported, "no save point to pop")
	}
	l.savePoints = l.savePoints[:len(l.savePoints)-1]
	return nil
}

// Truncate discards all log bytes (and record count tracking) beyond byte
// offset n. The caller is responsible for rebuilding any index over the
// discarded records.
func (l *RecordLog) Truncate(n int) {
	l.buf = l.buf[:n]
	// count is no longer accurate; callers must rebuild it by rescanning
	// (see IndexedBatch.RebuildIndex), since save points don't track how
	// many records they discard.
}

// Clear resets the log to empty, retaining its underlying capacity.
func (l *RecordLog) Clear() {
	l.buf = l.buf[:0]
	l.count = 0
	l.savePoints = l.savePoints[:0]
}

// ResetCount overwrites the log's declared record count. Used by
// IndexedBatch.RebuildIndex after a rollback, where the count must be
// recomputed from a rescan.
func (l *RecordLog) ResetCount(n uint32) { l.count = n }

// Base-value state for a TagMerge record's Aux blob (see decodeMergeAux).
const (
	// mergeBaseUnknown means the record carries no opinion on an existing
	// value: the reader must consult the external store itself, exactly
	// as if this were the first merge staged for the key.
	mergeBaseUnknown byte = 0
	// mergeBasePresent means the merge superseded a Put (or an earlier
	// Merge chain) already staged in this batch; the framed value
	// immediately following the state byte is the base to merge onto,
	// and the store must not be consulted.
	mergeBasePresent byte = 1
	// mergeBaseAbsent means the merge superseded a Delete/SingleDelete/
	// DeleteRange staged in this batch: the key is known to have no
	// value at this point in the batch, so the store's value (which the
	// batch has already locally overwritten) must not be consulted
	// either.
	mergeBaseAbsent byte = 2
)

// decodeMergeAux splits a TagMerge record's Aux blob back into the
// embedded base-value state left by IndexedBatch.mutate's duplicate-merge
// handling, and the ordered (oldest-first) list of every merge operand
// accumulated before the record's own Value, which is always the newest
// operand. An empty aux (the common case: this is the first merge staged
// for the key) decodes as mergeBaseUnknown with no prior operands.
func decodeMergeAux(aux []byte) (base []byte, state byte, operands [][]byte) {
	if len(aux) == 0 {
		return nil, mergeBaseUnknown, nil
	}
	state = aux[0]
	pos := 1
	if state == mergeBasePresent {
		b, _, newPos, ok := decodeStrAt(aux, pos)
		if !ok {
			return nil, mergeBaseUnknown, nil
		}
		base = b
		pos = newPos
	}
	for pos < len(aux) {
		s, _, newPos, ok := decodeStrAt(aux, pos)
		if !ok {
			break
		}
		operands = append(operands, s)
		pos = newPos
	}
	return base, state, operands
}

// encodeMergeAux builds a TagMerge record's Aux blob from a base-value
// state (and its value, for mergeBasePresent) plus the ordered list of
// every operand older than the record's own Value.
func encodeMergeAux(base []byte, state byte, operands [][]byte) []byte {
	aux := []byte{state}
	if state == mergeBasePresent {
		aux = appendOperandFrame(aux, base)
	}
	for _, op := range operands {
		aux = appendOperandFrame(aux, op)
	}
	return aux
}

// appendOperandFrame appends a length-prefixed operand to a TagMerge
// record's accumulating Aux blob.
func appendOperandFrame(aux, operand []byte) []byte {
	aux = appendUvarint(aux, uint64(len(operand)))
	return append(aux, operand...)
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// decodeUvarintAt decodes a uvarint from buf starting at pos, returning
// the value and the position immediately following it.
func decodeUvarintAt(buf []byte, pos int) (v uint64, newPos int, ok bool) {
	v, n := binary.Uvarint(buf[pos:])
	if n <= 0 {
		return 0, 0, false
	}
	return v, pos + n, true
}

// decodeStrAt decodes a length-prefixed byte string from buf starting at
// pos, returning the string (a subslice of buf), the offset at which its
// bytes begin, and the position immediately following it.
func decodeStrAt(buf []byte, pos int) (s []byte, strOffset, newPos int, ok bool) {
	v, pos, ok := decodeUvarintAt(buf, pos)
	if !ok {
		return nil, 0, 0, false
	}
	if v > uint64(len(buf)-pos) {
		return nil, 0, 0, false
	}
	return buf[pos : pos+int(v)], pos, pos + int(v), true
}
