// SPDX-License-Identifier: GPL-3.0

package tcp

import (
	"go.uber.org/zap"

	"github.com/netlab-course/tcpsim/internal/clock"
)

// Timer kinds for the sender's two timers, matching timer_expired(kind)'s
// 1 = RTO, 2 = idle-connection convention.
const (
	TimerKindRTO  = 1
	TimerKindIdle = 2
)

// rtoTimerID and idleTimerID name the sender's two timers in the shared
// timer wheel.
var (
	rtoTimerID  = clock.ID{Component: "sender", Kind: TimerKindRTO}
	idleTimerID = clock.ID{Component: "sender", Kind: TimerKindIdle}
)

// idleTimeout is how long a sender with nothing outstanding waits before
// its idle-connection timer fires and resets it to Slow-Start.
const idleTimeout clock.Clock = 16

// sentSeg records a segment this Sender has transmitted and is still
// waiting to have acknowledged.
type sentSeg struct {
	seq       Seq
	len       Bytes
	timestamp clock.Clock // -1 if this copy was itself a retransmission
}

// dupACKThreshold is the number of duplicate ACKs that triggers fast
// retransmit.
const dupACKThreshold = 3

// Sender is a TCP sender running one of the Tahoe, Reno, or NewReno
// congestion-control variants over a single, one-directional bulk
// transfer.
type Sender struct {
	variant Variant
	state   senderState

	cwnd     Bytes
	ssthresh Bytes

	dupACKCount int
	// lastByteSentBefore3xDupAcksRecvd is -1 outside of a fast-retransmit
	// episode, and the send-sequence high-water mark at the moment fast
	// retransmit fired otherwise (RENO's "recover" point).
	lastByteSentBefore3xDupAcksRecvd Seq
	firstPartialACK                  bool

	rcvWindow     Bytes
	lastByteAcked Seq
	nextSeqToSend Seq
	totalLen      Bytes

	unacked []sentSeg

	uniqueBytesSent Bytes
	retransmits     int

	rto *Estimator

	log *zap.Logger
}

// NewSender returns a Sender ready to transmit totalLen bytes using the
// given variant.
func NewSender(variant Variant, totalLen Bytes, log *zap.Logger) *Sender {
	return &Sender{
		variant:                          variant,
		state:                            slowStartState{},
		cwnd:                             IW,
		ssthresh:                         InitialSSThresh,
		lastByteSentBefore3xDupAcksRecvd: -1,
		rcvWindow:                        DefaultRcvWindow,
		totalLen:                         totalLen,
		rto:                              NewEstimator(),
		log:                              log,
	}
}

// flightSize returns the number of bytes sent but not yet acknowledged.
func (s *Sender) flightSize() Bytes {
	return Bytes(s.nextSeqToSend - Seq(s.lastByteAcked))
}

// StateName reports the sender's current congestion-control state, for
// reporting.
func (s *Sender) StateName() string { return s.state.name() }

// Cwnd returns the current congestion window.
func (s *Sender) Cwnd() Bytes { return s.cwnd }

// SSThresh returns the current slow-start threshold.
func (s *Sender) SSThresh() Bytes { return s.ssthresh }

// FlightSize exposes flightSize for reporting.
func (s *Sender) FlightSize() Bytes { return s.flightSize() }

// EffectiveWindow returns min(cwnd, receiver-advertised window).
func (s *Sender) EffectiveWindow() Bytes { return minBytes(s.cwnd, s.rcvWindow) }

// RTOInterval returns the estimator's current base timeout interval, for
// reporting.
func (s *Sender) RTOInterval() clock.Clock { return s.rto.timeoutInterval }

// Done reports whether every byte has been sent and acknowledged.
func (s *Sender) Done() bool {
	return Seq(s.lastByteAcked) >= Seq(s.totalLen) && s.nextSeqToSend >= Seq(s.totalLen)
}

// TotalBytesTransmitted returns the count of unique (non-retransmitted)
// payload bytes sent so far.
func (s *Sender) TotalBytesTransmitted() Bytes { return s.uniqueBytesSent }

// LastByteAcked returns the next byte offset the sender has not yet seen
// cumulatively acknowledged (the exclusive high-water mark, matching
// Segment.AckSeq's and Receiver.next's convention), 0 if nothing has been
// acknowledged yet.
func (s *Sender) LastByteAcked() Seq { return s.lastByteAcked }

// Retransmits returns the count of segments this Sender has retransmitted.
func (s *Sender) Retransmits() int { return s.retransmits }

// SetPeerWindow updates the receiver-advertised window carried on an ACK.
func (s *Sender) SetPeerWindow(w Bytes) { s.rcvWindow = w }

// Send emits as many new segments as the current window allows, oldest
// unsent byte first, and arms the retransmission timer if data is now in
// flight. It is called once per tick, mirroring the reference
// implementation's per-tick sender.send() call.
func (s *Sender) Send(now clock.Clock, timers *clock.Wheel) []Segment {
	var out []Segment
	window := s.EffectiveWindow()
	for {
		room := window - s.flightSize()
		if room < 1 || s.nextSeqToSend >= Seq(s.totalLen) {
			break
		}
		segLen := minBytes(MSS, Bytes(Seq(s.totalLen)-s.nextSeqToSend))
		if Bytes(room) < segLen {
			break
		}
		seg := sentSeg{seq: s.nextSeqToSend, len: segLen, timestamp: now}
		s.unacked = append(s.unacked, seg)
		s.nextSeqToSend += Seq(segLen)
		s.uniqueBytesSent += segLen
		out = append(out, Segment{
			DataSeq:   seg.seq,
			AckSeq:    -1,
			Len:       segLen,
			Timestamp: now,
		})
	}
	if len(out) > 0 {
		s.rearmRTO(now, timers)
	}
	if len(out) > 0 && timers.Armed(idleTimerID) {
		_ = timers.Cancel(idleTimerID)
	} else if len(out) == 0 && len(s.unacked) == 0 && !timers.Armed(idleTimerID) {
		_ = timers.Arm(idleTimerID, now.Add(idleTimeout), nil)
	}
	return out
}

// HandleIdleTimeout resets congestion parameters to Slow-Start without
// touching ss_thresh, per the idle-connection timer's defined reaction.
func (s *Sender) HandleIdleTimeout() {
	s.cwnd = IW
	s.dupACKCount = 0
	s.lastByteSentBefore3xDupAcksRecvd = -1
	s.state = slowStartState{}
}

// rearmRTO ensures the RTO timer reflects whether data is currently
// unacknowledged, canceling and re-registering it against the estimator's
// latest timeout so that every new departure or arrival restarts the
// clock, matching the reference sender's startRTOtimer/cancelRTOtimer
// pairing.
func (s *Sender) rearmRTO(now clock.Clock, timers *clock.Wheel) {
	if timers.Armed(rtoTimerID) {
		_ = timers.Cancel(rtoTimerID)
	}
	if len(s.unacked) > 0 {
		_ = timers.Arm(rtoTimerID, now.Add(s.rto.Timeout()), nil)
	}
}

// retransmitOldest marks the oldest unacked segment as a retransmission
// (Karn's algorithm: its timestamp is invalidated for RTT sampling) and
// returns the Segment to resend.
func (s *Sender) retransmitOldest(now clock.Clock) (Segment, bool) {
	if len(s.unacked) == 0 {
		return Segment{}, false
	}
	s.unacked[0].timestamp = -1
	s.retransmits++
	seg := s.unacked[0]
	return Segment{
		DataSeq:   seg.seq,
		AckSeq:    -1,
		Len:       seg.len,
		Timestamp: -1,
	}, true
}

// ackUpTo removes every unacked segment fully covered by ack, and reports
// the timestamp of the oldest segment the ACK newly confirms (for RTT
// sampling) plus whether any new bytes were acknowledged.
func (s *Sender) ackUpTo(ack Seq) (sampleTS clock.Clock, sampleOK bool, newBytes Bytes) {
	sampleTS = -1
	for len(s.unacked) > 0 && s.unacked[0].seq+Seq(s.unacked[0].len) <= ack {
		seg := s.unacked[0]
		if !sampleOK {
			sampleTS = seg.timestamp
			sampleOK = true
		}
		newBytes += seg.len
		s.unacked = s.unacked[1:]
	}
	return
}

// HandleAck processes an incoming acknowledgement segment. Any
// retransmission the congestion-control state machine decides to send as a
// result is returned to the caller for transmission.
func (s *Sender) HandleAck(now clock.Clock, seg Segment, timers *clock.Wheel) []Segment {
	if !seg.IsAck() {
		return nil
	}
	s.SetPeerWindow(seg.RcvWindow)
	switch {
	case seg.AckSeq > s.lastByteAcked:
		return s.state.handleNewAck(s, now, seg.AckSeq, timers)
	case seg.AckSeq == s.lastByteAcked:
		return s.state.handleDupAck(s, now, timers)
	}
	return nil
}

// HandleTimeout processes an RTO expiration.
func (s *Sender) HandleTimeout(now clock.Clock, timers *clock.Wheel) []Segment {
	return s.state.handleTimeout(s, now, timers)
}
