// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

//go:build !linux

package decompressor

import "github.com/substratefs/blobfs/internal/base"

func setSchedulingHint(base.Logger) {}
