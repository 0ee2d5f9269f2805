// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

//go:build !unix

package decompressor

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/substratefs/blobfs/internal/base"
)

// MapRegion is only supported on unix platforms; elsewhere sessions must be
// created over caller-owned memory with NewRegion.
func MapRegion(f *os.File, writable bool) (*Region, error) {
	return nil, errors.Wrap(base.ErrNotSupported, "buffer mapping requires a unix platform")
}

func munmap(data []byte) error {
	return nil
}
