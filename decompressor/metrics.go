// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package decompressor

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the engine's counters. Every field is optional; nil
// collectors are skipped. The caller owns registration.
type Metrics struct {
	// Sessions tracks the number of live sessions.
	Sessions prometheus.Gauge
	// Requests counts transform requests received, successful or not.
	Requests prometheus.Counter
	// Failures counts requests answered with a failure status.
	Failures prometheus.Counter
	// RequestLatency observes the wall time of each transform, in seconds.
	RequestLatency prometheus.Histogram
}

func (m *Metrics) sessionStarted() {
	if m.Sessions != nil {
		m.Sessions.Inc()
	}
}

func (m *Metrics) sessionEnded() {
	if m.Sessions != nil {
		m.Sessions.Dec()
	}
}

func (m *Metrics) requestDone(status Status, seconds float64) {
	if m.Requests != nil {
		m.Requests.Inc()
	}
	if status != StatusOK && m.Failures != nil {
		m.Failures.Inc()
	}
	if m.RequestLatency != nil {
		m.RequestLatency.Observe(seconds)
	}
}
