// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import "github.com/cockroachdb/errors"

// ErrNotFound means that a lookup did not find the requested key.
var ErrNotFound = errors.New("batch: not found")

// ErrCorruption means the record log or one of its records is malformed.
var ErrCorruption = errors.New("batch: corruption")

// ErrInvalidArgument means a caller-supplied argument is invalid, such as a
// merge operand with no registered merge operator.
var ErrInvalidArgument = errors.New("batch: invalid argument")

// ErrUnsupported means the requested operation is not supported given the
// batch's current configuration (e.g. constructing a merged iterator over a
// non-overwrite-mode batch, or a duplicate merge without
// AllowDuplicateMerge).
var ErrUnsupported = errors.New("batch: unsupported")

// ErrMergeInProgress is returned by point lookups when the most recent
// record for a key is a Merge and resolving it requires consulting the
// backing store's merge operator (see IndexedBatch.GetFromBatch).
var ErrMergeInProgress = errors.New("batch: merge in progress")

// ErrMemoryLimit is returned by a mutation that would grow the record log
// beyond Options.MaxBytes.
var ErrMemoryLimit = errors.New("batch: memory limit exceeded")
