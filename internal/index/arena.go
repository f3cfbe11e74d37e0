// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package index

const arenaPageSize = 256

// Arena is a bump allocator for IndexEntry storage. Entries are allocated
// from fixed-size pages; once a page is created its backing array is
// never reallocated, so a *Entry handed out by Alloc remains valid for as
// long as the Arena itself (until Reset, which invalidates every
// previously allocated entry and is the caller's responsibility to
// coordinate with outstanding iterators).
type Arena struct {
	pages   [][]Entry
	nextSeq uint64
}

// NewArena returns an empty Arena.
func NewArena() *Arena {
	return &Arena{}
}

// Alloc allocates and initializes a new Entry.
func (a *Arena) Alloc(columnID uint32, logOffset, keyOffset, keyLength uint32, flags Flags) *Entry {
	if len(a.pages) == 0 {
		a.pages = append(a.pages, make([]Entry, 0, arenaPageSize))
	}
	last := len(a.pages) - 1
	if len(a.pages[last]) == cap(a.pages[last]) {
		a.pages = append(a.pages, make([]Entry, 0, arenaPageSize))
		last++
	}
	a.pages[last] = append(a.pages[last], Entry{
		ColumnID:  columnID,
		KeyOffset: keyOffset,
		KeyLength: keyLength,
		Flags:     flags,
		seq:       a.nextSeq,
	})
	a.nextSeq++
	e := &a.pages[last][len(a.pages[last])-1]
	e.SetLogOffset(logOffset)
	return e
}

// Reset clears the arena, discarding every previously allocated Entry.
// Callers must ensure no OrderedIndex or iterator still references
// entries from before the reset.
func (a *Arena) Reset() {
	a.pages = nil
	a.nextSeq = 0
}

// Len returns the number of entries currently allocated from the arena.
func (a *Arena) Len() int {
	n := 0
	for _, p := range a.pages {
		n += len(p)
	}
	return n
}
