// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

//go:build unix

package decompressor

import (
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// MapRegion memory-maps the whole of f as a session region. The compressed
// buffer is mapped read-only; the decompressed buffer read-write. The file
// descriptor may be closed once MapRegion returns; the mapping keeps the
// memory alive until the session releases it.
func MapRegion(f *os.File, writable bool) (*Region, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat %q", f.Name())
	}
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %q (%d bytes)", f.Name(), st.Size())
	}
	return &Region{data: data, mapped: true}, nil
}

func munmap(data []byte) error {
	return unix.Munmap(data)
}
