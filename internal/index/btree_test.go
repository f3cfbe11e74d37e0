// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package index

import "testing"

func TestBTreeIndex(t *testing.T) {
	runOrderedIndexSuite(t, func(cmp *Comparator) OrderedIndex {
		return NewBTreeIndex(cmp)
	})
}
