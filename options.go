// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import (
	"bytes"

	"github.com/cockroachdb-labs/indexedbatch/internal/index"
)

// IndexKind selects the ordered-index backend used by an IndexedBatch.
type IndexKind string

const (
	// IndexSkiplist uses a randomized skiplist, adapted from
	// internal/batchskl in the teacher repository.
	IndexSkiplist IndexKind = "skiplist"
	// IndexRBTree uses a comparator-driven ordered multiset backed by
	// github.com/google/btree. See DESIGN.md for why a B-tree stands in
	// for the spec's "threaded red-black tree."
	IndexRBTree IndexKind = "rbtree"
)

// Compare returns -1, 0, or +1 depending on whether a is less than, equal
// to, or greater than b. It is an alias of index.Compare so an Options'
// comparators can be passed straight into index.NewComparator without
// conversion.
type Compare = index.Compare

// DefaultCompare is the byte-lexicographic comparator used for any column
// without an explicitly registered comparator.
var DefaultCompare Compare = bytes.Compare

// Options configures the construction of an IndexedBatch.
type Options struct {
	// DefaultCompare is used for any column without an explicit comparator
	// registered via IndexedBatch.SetComparator.
	DefaultCompare Compare

	// ReservedBytes is the initial capacity reserved in the record log.
	ReservedBytes int

	// MaxBytes caps the size of the record log. A mutation that would grow
	// the log beyond MaxBytes fails with ErrMemoryLimit. Zero means
	// unlimited.
	MaxBytes int

	// OverwriteKey enables update-in-place indexing: mutating the same key
	// twice updates the existing IndexEntry rather than inserting a new
	// one, and enables MergedIterator construction.
	OverwriteKey bool

	// AllowDuplicateMerge permits a Merge in overwrite mode to update an
	// existing index entry of any tag. By default this is disallowed and
	// returns ErrUnsupported, since folding a merge onto an existing entry
	// changes what the merge resolves against: chained onto a prior
	// pending Merge, the new operand is appended to the earlier chain;
	// folded onto a prior Put, the merge resolves against that Put's value
	// instead of the store's; folded onto a prior Delete/SingleDelete/
	// DeleteRange, the merge resolves as if no value exists, rather than
	// falling back to a stale store value.
	AllowDuplicateMerge bool

	// IndexKind selects the ordered-index backend. Defaults to
	// IndexRBTree.
	IndexKind IndexKind

	// Logger receives diagnostic messages from collapse() and
	// rebuild_index(). Defaults to DefaultLogger.
	Logger Logger

	// Metrics, if non-nil, is updated as the batch is mutated and
	// collapsed.
	Metrics *Metrics
}

// EnsureDefaults fills any zero-valued fields with their defaults. It
// returns its receiver for chaining, and is safe to call on a nil
// *Options (in which case a fresh, fully-defaulted Options is returned).
func (o *Options) EnsureDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.DefaultCompare == nil {
		o.DefaultCompare = DefaultCompare
	}
	if o.ReservedBytes <= 0 {
		o.ReservedBytes = 1 << 10 // 1 KB, matches batchInitialSize in the teacher.
	}
	if o.IndexKind == "" {
		o.IndexKind = IndexRBTree
	}
	if o.Logger == nil {
		o.Logger = DefaultLogger
	}
	return o
}
