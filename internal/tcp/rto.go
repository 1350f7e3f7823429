// SPDX-License-Identifier: GPL-3.0

package tcp

import "github.com/netlab-course/tcpsim/internal/clock"

const (
	alphaShift      = 3 // estimatedRTT EWMA weight, 1/8
	betaShift       = 2 // devRTT EWMA weight, 1/4
	stdDevMultShift = 2 // devRTT multiplier in the timeout formula, *4

	minTimeoutTicks clock.Clock = 1
	maxTimeoutTicks clock.Clock = 240
)

// Estimator tracks the smoothed RTT and the current retransmission timeout,
// following RFC 6298's estimator with Karn's algorithm: samples are only
// taken from segments that were never retransmitted.
type Estimator struct {
	seeded          bool
	estimatedRTT    clock.Clock
	devRTT          clock.Clock
	timeoutInterval clock.Clock
	backoff         clock.Clock
}

// NewEstimator returns an unseeded Estimator.
func NewEstimator() *Estimator {
	return &Estimator{backoff: 1, timeoutInterval: minTimeoutTicks}
}

// Update folds a new RTT sample into the estimate. sent is the Clock value
// the sample's segment was transmitted at; a sent value of -1 means the
// segment was a retransmission and the sample is discarded.
func (e *Estimator) Update(now, sent clock.Clock) {
	if sent < 0 {
		return
	}
	e.backoff = 1
	sample := now - sent
	if sample < 1 {
		sample = 1
	}
	if !e.seeded {
		e.estimatedRTT = sample
		e.devRTT = sample / 2
		e.seeded = true
	} else {
		err := sample - e.estimatedRTT
		e.estimatedRTT += err >> alphaShift
		if err < 0 {
			err = -err
		}
		e.devRTT += (err - e.devRTT) >> betaShift
	}
	bound := e.devRTT << stdDevMultShift
	if bound < minTimeoutTicks {
		bound = minTimeoutTicks
	}
	ti := e.estimatedRTT + bound
	if ti < minTimeoutTicks {
		ti = minTimeoutTicks
	}
	e.timeoutInterval = ti
}

// Backoff doubles the exponential backoff multiplier applied to the
// timeout, unless the backed-off interval has already reached the cap.
func (e *Estimator) Backoff() {
	if e.timeoutInterval*e.backoff < maxTimeoutTicks {
		e.backoff <<= 1
	}
}

// Timeout returns the current retransmission timeout, the base interval
// scaled by the backoff multiplier and clamped to [minTimeoutTicks,
// maxTimeoutTicks].
func (e *Estimator) Timeout() clock.Clock {
	rto := e.timeoutInterval * e.backoff
	if rto < minTimeoutTicks {
		rto = minTimeoutTicks
	}
	if rto > maxTimeoutTicks {
		rto = maxTimeoutTicks
	}
	return rto
}
