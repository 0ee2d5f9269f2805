// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

//go:build linux

package decompressor

import (
	"runtime"

	"github.com/substratefs/blobfs/internal/base"
	"golang.org/x/sys/unix"
)

// sessionPriority is the niceness requested for session threads.
// Decompression sits on the blob read path, so its threads should not be
// starved by unrelated background work.
const sessionPriority = -10

// setSchedulingHint pins the calling goroutine to its OS thread and asks
// for a latency-sensitive priority. This is a placement hint: failure
// (typically missing privileges) is logged and ignored. The goroutine stays
// locked to the thread so the priority follows the session for its
// lifetime.
func setSchedulingHint(logger base.Logger) {
	runtime.LockOSThread()
	if err := unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), sessionPriority); err != nil {
		logger.Infof("blobfs: decompressor session thread keeps default priority: %v", err)
	}
}
