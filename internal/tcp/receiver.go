// SPDX-License-Identifier: GPL-3.0

package tcp

import (
	"container/heap"

	"go.uber.org/zap"

	"github.com/netlab-course/tcpsim/internal/clock"
)

// delayedACKID names the receiver's delayed-ACK timer.
var delayedACKID = clock.ID{Component: "receiver", Kind: 0}

// maxRcvWindow is the receiver's default advertised window, used when
// NewReceiver is given a non-positive window.
const maxRcvWindow Bytes = 65536

// pendingAck is the state snapshotted when a delayed ACK is armed, so the
// Ding handler can tell whether a later immediate ACK already covered it.
type pendingAck struct {
	ackSeq Seq
	ts     clock.Clock
}

// Receiver generates cumulative and duplicate acknowledgements for an
// in-order byte stream. It holds out-of-order segments in a small reorder
// buffer, ACKs immediately on any reordering event, and otherwise ACKs
// every other in-order segment immediately, deferring the other to the
// delayed-ACK timer, which fires at the end of the current tick -
// classic TCP delayed-ACK behavior.
type Receiver struct {
	next          Seq // next in-order byte expected
	lastByteRecvd Seq
	maxRcvWindow  Bytes
	rcvWindow     Bytes
	buf           buffer
	delayAck      bool
	lastAckSent   Seq
	log           *zap.Logger
}

// NewReceiver returns a Receiver with an empty stream starting at sequence
// 0, advertising maxWindow as its maximum receive window. A non-positive
// maxWindow falls back to maxRcvWindow.
func NewReceiver(maxWindow Bytes, log *zap.Logger) *Receiver {
	if maxWindow <= 0 {
		maxWindow = maxRcvWindow
	}
	return &Receiver{
		maxRcvWindow: maxWindow,
		rcvWindow:    maxWindow,
		delayAck:     true,
		lastAckSent:  -1,
		log:          log,
	}
}

// Handle processes an incoming data segment and returns the ACK to send
// immediately, or false if the ACK is deferred to the delayed-ACK timer.
func (r *Receiver) Handle(now clock.Clock, seg Segment, timers *clock.Wheel) (Segment, bool) {
	if seg.Error {
		return Segment{}, false
	}
	immediate := seg.DataSeq != r.next || len(r.buf) > 0
	if immediate {
		wasInOrder := seg.DataSeq == r.next
		if wasInOrder {
			r.next = seg.NextSeq()
			r.drainBuffer()
		} else {
			heap.Push(&r.buf, seg)
			if seg.NextSeq()-1 > r.lastByteRecvd {
				r.lastByteRecvd = seg.NextSeq() - 1
			}
			r.recomputeWindow()
		}
		r.delayAck = true
		ts := seg.Timestamp
		if !wasInOrder {
			// a duplicate ACK for a genuinely out-of-order arrival
			// carries no RTT sample, matching Karn's algorithm
			// treatment on the sender side.
			ts = -1
		}
		return r.sendAck(ts), true
	}
	r.next = seg.NextSeq()
	r.lastByteRecvd = r.next - 1
	if !r.delayAck {
		r.delayAck = true
		return r.sendAck(seg.Timestamp), true
	}
	if timers.Armed(delayedACKID) {
		_ = timers.Cancel(delayedACKID)
	}
	_ = timers.Arm(delayedACKID, now, pendingAck{ackSeq: r.next, ts: seg.Timestamp})
	r.delayAck = false
	return Segment{}, false
}

// drainBuffer pops every buffered segment that now extends the in-order
// run, advancing next and recomputing the window.
func (r *Receiver) drainBuffer() {
	for len(r.buf) > 0 && r.buf[0].DataSeq == r.next {
		s := heap.Pop(&r.buf).(Segment)
		r.next = s.NextSeq()
	}
	r.recomputeWindow()
}

func (r *Receiver) recomputeWindow() {
	occupied := Bytes(r.lastByteRecvd - r.next + 1)
	if occupied < 0 {
		occupied = 0
	}
	r.rcvWindow = r.maxRcvWindow - occupied
	if r.rcvWindow < 0 {
		r.rcvWindow = 0
	}
}

// sendAck builds and records the current cumulative ACK.
func (r *Receiver) sendAck(ts clock.Clock) Segment {
	r.lastAckSent = r.next
	return Segment{
		DataSeq:   0,
		AckSeq:    r.next,
		Len:       0,
		RcvWindow: r.rcvWindow,
		Timestamp: ts,
	}
}

// Ding fires when a delayed ACK's timer expires. If a later immediate ACK
// already covered the same or a newer cumulative sequence, the delayed ACK
// is suppressed.
func (r *Receiver) Ding(data any) (Segment, bool) {
	p, ok := data.(pendingAck)
	if !ok {
		return Segment{}, false
	}
	if r.lastAckSent >= p.ackSeq {
		return Segment{}, false
	}
	return r.sendAck(p.ts), true
}
