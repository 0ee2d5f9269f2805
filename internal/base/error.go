// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package base

import (
	"github.com/cockroachdb/errors"
)

// ErrNotFound means that a node (or other indexed resource) lookup did not
// find the requested index.
var ErrNotFound = errors.New("blobfs: not found")

// ErrNotSupported means the operation is not implemented by the variant or
// algorithm it was invoked on. Retrying without changing the request will
// fail again.
var ErrNotSupported = errors.New("blobfs: not supported")

// ErrNoSpace means a reservation could not be satisfied because the free set
// is exhausted. The allocator state is unchanged.
var ErrNoSpace = errors.New("blobfs: out of space")

// ErrOutOfRange means a requested byte or block range falls outside the
// bounds of the resource it addresses.
var ErrOutOfRange = errors.New("blobfs: out of range")

// ErrInvalidArgument marks caller misuse, e.g. seeking a block iterator past
// the end of its extent list.
var ErrInvalidArgument = errors.New("blobfs: invalid argument")

// ErrCorruption is a marker error for on-disk or in-flight data corruption.
// Corruption errors are constructed with CorruptionErrorf or wrapped with
// MarkCorruptionError.
var ErrCorruption = errors.New("blobfs: corruption")

// CorruptionErrorf formats according to a format specifier and returns the
// string as an error marked as a corruption error.
func CorruptionErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruption)
}

// MarkCorruptionError marks the given error as a corruption error.
func MarkCorruptionError(err error) error {
	if errors.Is(err, ErrCorruption) {
		return err
	}
	return errors.Mark(err, ErrCorruption)
}

// IsCorruptionError returns true if the given error indicates corruption.
func IsCorruptionError(err error) bool {
	return errors.Is(err, ErrCorruption)
}
