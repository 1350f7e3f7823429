// SPDX-License-Identifier: GPL-3.0

package tcp

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netlab-course/tcpsim/internal/clock"
)

func ackSeg(ack Seq, ts clock.Clock) Segment {
	return Segment{AckSeq: ack, RcvWindow: maxRcvWindow, Timestamp: ts}
}

func TestSenderSlowStartGrowsByAckedBytes(t *testing.T) {
	s := NewSender(Tahoe, 100*MSS, zap.NewNop())
	timers := clock.NewWheel()

	sent := s.Send(0, timers)
	require.NotEmpty(t, sent)
	initialCwnd := s.Cwnd()

	s.HandleAck(1, ackSeg(Seq(MSS), 0), timers)
	require.Equal(t, initialCwnd+MSS, s.Cwnd())
	require.Equal(t, "SlowStart", s.StateName())
}

func TestSenderEntersCongestionAvoidanceAtSSThresh(t *testing.T) {
	s := NewSender(Reno, 1000*MSS, zap.NewNop())
	s.ssthresh = IW // next ack should cross the threshold
	timers := clock.NewWheel()
	s.Send(0, timers)

	s.HandleAck(1, ackSeg(Seq(MSS), 0), timers)
	require.Equal(t, "CongestionAvoidance", s.StateName())
}

func TestTahoeFastRetransmitGoesStraightToSlowStart(t *testing.T) {
	s := NewSender(Tahoe, 1000*MSS, zap.NewNop())
	timers := clock.NewWheel()
	s.Send(0, timers)

	var segs []Segment
	for i := 0; i < 3; i++ {
		segs = s.HandleAck(clock.Clock(i+1), ackSeg(0, -1), timers)
	}
	require.Len(t, segs, 1)
	require.Equal(t, "SlowStart", s.StateName())
	require.Equal(t, MSS, s.Cwnd())
}

func TestRenoFastRetransmitEntersFastRecovery(t *testing.T) {
	s := NewSender(Reno, 1000*MSS, zap.NewNop())
	timers := clock.NewWheel()
	s.Send(0, timers)
	s.Send(0, timers)
	s.Send(0, timers)

	var segs []Segment
	for i := 0; i < 3; i++ {
		segs = s.HandleAck(clock.Clock(i+1), ackSeg(0, -1), timers)
	}
	require.Len(t, segs, 1)
	require.Equal(t, "FastRecovery", s.StateName())
}

func TestNewRenoPartialAckStaysInFastRecovery(t *testing.T) {
	s := NewSender(NewReno, 1000*MSS, zap.NewNop())
	s.cwnd = 4 * MSS // four segments in flight, so acking the first is partial
	timers := clock.NewWheel()
	for i := 0; i < 4; i++ {
		s.Send(0, timers)
	}

	for i := 0; i < 3; i++ {
		s.HandleAck(clock.Clock(i+1), ackSeg(0, -1), timers)
	}
	require.Equal(t, "FastRecovery", s.StateName())
	recoverPoint := s.lastByteSentBefore3xDupAcksRecvd

	segs := s.HandleAck(10, ackSeg(Seq(MSS), 0), timers)
	require.Equal(t, "FastRecovery", s.StateName(), "partial ACK keeps NewReno in fast recovery")
	require.Len(t, segs, 1, "partial ACK retransmits the next unacked segment")
	require.Equal(t, recoverPoint, s.lastByteSentBefore3xDupAcksRecvd)
}

func TestRTOTimeoutHalvesAndRetransmits(t *testing.T) {
	s := NewSender(Reno, 1000*MSS, zap.NewNop())
	timers := clock.NewWheel()
	s.Send(0, timers)

	segs := s.HandleTimeout(100, timers)
	require.Len(t, segs, 1)
	require.Equal(t, MSS, s.Cwnd())
	require.Equal(t, "SlowStart", s.StateName())
	require.GreaterOrEqual(t, s.SSThresh(), 2*MSS)
}
