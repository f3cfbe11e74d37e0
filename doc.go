// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package batch implements an indexed write batch: an in-memory staging
// buffer that accumulates key-space mutations (put, delete, single-delete,
// delete-range, merge) destined for an external key-value store, while
// maintaining a secondary ordered index that allows the batch to be read
// back by key and merged on the fly with a point-in-time view of the
// underlying store.
package batch
