// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package invariants

import "runtime"

// UseFinalizers is true if we want to use finalizers for assertions around
// object lifetime and cleanup. We exclude race builds because finalizers
// have historically interacted poorly with the race detector.
const UseFinalizers = Enabled && !RaceEnabled

// SetFinalizer is a wrapper around runtime.SetFinalizer that is a no-op
// unless finalizer-backed assertions are enabled.
func SetFinalizer(obj, finalizer interface{}) {
	if UseFinalizers {
		runtime.SetFinalizer(obj, finalizer)
	}
}
