// SPDX-License-Identifier: GPL-3.0

package tcp

import "github.com/netlab-course/tcpsim/internal/clock"

// senderState is one state of the congestion-control state machine:
// Slow-Start, Congestion-Avoidance, or Fast-Recovery. Variant-specific
// behavior (Tahoe vs. Reno vs. NewReno) is resolved inside each method by
// switching on Sender.variant, mirroring the reference implementation's
// per-variant subclass overrides without introducing a Go type per
// variant-state pair.
type senderState interface {
	name() string
	handleNewAck(s *Sender, now clock.Clock, ack Seq, timers *clock.Wheel) []Segment
	handleDupAck(s *Sender, now clock.Clock, timers *clock.Wheel) []Segment
	handleTimeout(s *Sender, now clock.Clock, timers *clock.Wheel) []Segment
}

// onThreeDupAcks is fired exactly once per loss episode, when dupACKCount
// first reaches dupACKThreshold. It computes the new ssthresh and cwnd per
// the active variant and returns the fast-retransmitted segment.
func onThreeDupAcks(s *Sender, now clock.Clock, timers *clock.Wheel) []Segment {
	switch s.variant {
	case Tahoe:
		s.ssthresh = maxBytes(roundDownToMSS(s.cwnd/2), 2*MSS)
		s.cwnd = MSS
		seg, ok := s.retransmitOldest(now)
		s.rearmRTO(now, timers)
		s.state = slowStartState{}
		if !ok {
			return nil
		}
		return []Segment{seg}
	default: // Reno, NewReno
		flight := s.flightSize()
		s.lastByteSentBefore3xDupAcksRecvd = s.nextSeqToSend
		s.ssthresh = maxBytes(roundDownToMSS(flight/2), 2*MSS)
		s.cwnd = maxBytes(flight/2, 2*MSS) + 3*MSS
		seg, ok := s.retransmitOldest(now)
		s.rearmRTO(now, timers)
		s.state = fastRecoveryState{}
		if !ok {
			return nil
		}
		return []Segment{seg}
	}
}

// onExpiredRTOTimer is fired whenever the retransmission timer expires. It
// applies the variant-specific ssthresh rule, backs off the RTO, and
// drops the sender back to Slow-Start.
func onExpiredRTOTimer(s *Sender, now clock.Clock, timers *clock.Wheel) []Segment {
	switch s.variant {
	case Tahoe:
		s.ssthresh = maxBytes(s.cwnd/2, 2*MSS)
	default: // Reno, NewReno use flight size, not cwnd
		s.ssthresh = maxBytes(s.flightSize()/2, 2*MSS)
	}
	s.rto.Backoff()
	s.cwnd = MSS
	s.dupACKCount = 0
	s.lastByteSentBefore3xDupAcksRecvd = -1
	seg, ok := s.retransmitOldest(now)
	s.rearmRTO(now, timers)
	s.state = slowStartState{}
	if !ok {
		return nil
	}
	return []Segment{seg}
}

// slowStartState is the exponential cwnd-growth phase.
type slowStartState struct{}

func (slowStartState) name() string { return "SlowStart" }

func (slowStartState) handleNewAck(s *Sender, now clock.Clock, ack Seq, timers *clock.Wheel) []Segment {
	ts, ok, newBytes := s.ackUpTo(ack)
	if ok {
		s.rto.Update(now, ts)
	}
	s.lastByteAcked = ack
	if s.lastByteSentBefore3xDupAcksRecvd < 0 {
		s.cwnd += newBytes
	} else {
		s.cwnd += MSS
	}
	s.dupACKCount = 0
	s.rearmRTO(now, timers)
	if s.cwnd >= s.ssthresh {
		s.state = congestionAvoidanceState{}
	}
	return nil
}

func (slowStartState) handleDupAck(s *Sender, now clock.Clock, timers *clock.Wheel) []Segment {
	s.dupACKCount++
	if s.dupACKCount == dupACKThreshold {
		return onThreeDupAcks(s, now, timers)
	}
	return nil
}

func (slowStartState) handleTimeout(s *Sender, now clock.Clock, timers *clock.Wheel) []Segment {
	return onExpiredRTOTimer(s, now, timers)
}

// congestionAvoidanceState is the linear cwnd-growth phase.
type congestionAvoidanceState struct{}

func (congestionAvoidanceState) name() string { return "CongestionAvoidance" }

func (congestionAvoidanceState) handleNewAck(s *Sender, now clock.Clock, ack Seq, timers *clock.Wheel) []Segment {
	prev := s.lastByteAcked
	ts, ok, _ := s.ackUpTo(ack)
	if ok {
		s.rto.Update(now, ts)
	}
	s.lastByteAcked = ack
	s.rearmRTO(now, timers)
	acked := Bytes(ack - prev)
	if acked >= s.cwnd {
		s.cwnd += MSS
	} else {
		s.cwnd += MSS * MSS / s.cwnd
	}
	s.dupACKCount = 0
	if s.cwnd < s.ssthresh {
		// safety path: should not normally occur, but mirrors the
		// reference's defensive fallback to Slow-Start.
		s.cwnd = MSS
		s.lastByteSentBefore3xDupAcksRecvd = -1
		s.state = slowStartState{}
	}
	return nil
}

func (congestionAvoidanceState) handleDupAck(s *Sender, now clock.Clock, timers *clock.Wheel) []Segment {
	s.dupACKCount++
	if s.dupACKCount == dupACKThreshold {
		return onThreeDupAcks(s, now, timers)
	}
	return nil
}

func (congestionAvoidanceState) handleTimeout(s *Sender, now clock.Clock, timers *clock.Wheel) []Segment {
	return onExpiredRTOTimer(s, now, timers)
}

// fastRecoveryState holds cwnd inflated during loss recovery, between the
// fast retransmit and full recovery.
type fastRecoveryState struct{}

func (fastRecoveryState) name() string { return "FastRecovery" }

func (fastRecoveryState) handleNewAck(s *Sender, now clock.Clock, ack Seq, timers *clock.Wheel) []Segment {
	partial := ack < s.lastByteSentBefore3xDupAcksRecvd
	if s.variant == NewReno && partial {
		// NewReno: a partial ACK means only the first lost segment of the
		// episode was repaired; retransmit the next oldest unacked
		// segment and stay in Fast-Recovery (the Slow-but-Steady
		// variant: the RTO timer is re-armed on every partial ACK,
		// rather than only once).
		_, _, newlyAcked := s.ackUpTo(ack)
		s.lastByteAcked = ack
		cwndTmp := s.cwnd - newlyAcked
		if newlyAcked >= MSS {
			cwndTmp += MSS
		}
		s.cwnd = cwndTmp
		seg, ok := s.retransmitOldest(now)
		s.rearmRTO(now, timers)
		s.firstPartialACK = false
		if !ok {
			return nil
		}
		return []Segment{seg}
	}
	// Full recovery: either a NewReno full ACK, or any new ACK under
	// plain Reno or Tahoe (Reno always treats the first new ACK as full
	// recovery, which is the classic weakness NewReno was built to fix).
	s.ackUpTo(ack)
	s.lastByteAcked = ack
	s.lastByteSentBefore3xDupAcksRecvd = -1
	s.firstPartialACK = true
	s.cwnd = s.ssthresh
	s.dupACKCount = 0
	s.rearmRTO(now, timers)
	s.state = congestionAvoidanceState{}
	return nil
}

func (fastRecoveryState) handleDupAck(s *Sender, now clock.Clock, timers *clock.Wheel) []Segment {
	// Reno and NewReno both inflate cwnd for every additional duplicate
	// ACK received while recovering, since each one signals that another
	// segment has left the network.
	s.cwnd += MSS
	return nil
}

func (fastRecoveryState) handleTimeout(s *Sender, now clock.Clock, timers *clock.Wheel) []Segment {
	return onExpiredRTOTimer(s, now, timers)
}
