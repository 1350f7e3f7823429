// SPDX-License-Identifier: GPL-3.0

package tcp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netlab-course/tcpsim/internal/clock"
)

func TestEstimatorSeedsFromFirstSample(t *testing.T) {
	e := NewEstimator()
	e.Update(10, 5)
	require.Equal(t, clock.Clock(5), e.estimatedRTT)
	require.Equal(t, clock.Clock(2), e.devRTT)
}

func TestEstimatorSkipsRetransmittedSample(t *testing.T) {
	e := NewEstimator()
	e.Update(10, 5)
	before := e.estimatedRTT
	e.Update(20, -1)
	require.Equal(t, before, e.estimatedRTT)
}

func TestEstimatorBackoffDoublesUntilCap(t *testing.T) {
	e := NewEstimator()
	e.Update(10, 5)
	rto1 := e.Timeout()
	e.Backoff()
	rto2 := e.Timeout()
	require.Equal(t, rto1*2, rto2)
}

func TestEstimatorTimeoutClampedToMax(t *testing.T) {
	e := NewEstimator()
	e.Update(300, 0)
	for i := 0; i < 20; i++ {
		e.Backoff()
	}
	require.LessOrEqual(t, e.Timeout(), maxTimeoutTicks)
}
