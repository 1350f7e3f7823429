// SPDX-License-Identifier: GPL-3.0

package netsim

import (
	"math/rand"

	"github.com/netlab-course/tcpsim/internal/clock"
	"github.com/netlab-course/tcpsim/internal/tcp"
)

// port is a single output port of a Router: a drop-tail queue paired with
// rate-mismatch pacing toward the outgoing link. When the incoming link is
// faster than the outgoing one, at most one packet is ever "in
// transmission" at a time, and the mismatch ratio governs how many
// arrivals must accumulate before the next buffered packet is released.
type port struct {
	bufferCapacity tcp.Bytes
	occupancy      tcp.Bytes
	buffer         []tcp.Segment

	inTransmission *tcp.Segment

	mismatchRatio    float64 // incoming rate / outgoing rate for this direction
	maxMismatchRatio float64 // shared across both of the router's ports
	mismatchCount    float64

	forward func(now clock.Clock, seg tcp.Segment)

	drops int
}

func newPort(mismatchRatio float64, bufferCapacity tcp.Bytes,
	forward func(clock.Clock, tcp.Segment)) *port {
	return &port{
		bufferCapacity: bufferCapacity,
		mismatchRatio:  mismatchRatio,
		forward:        forward,
	}
}

// handleIncoming processes one arriving packet at this port, following the
// reference router's pacing algorithm: a packet arriving while the port is
// idle is sent straight through if the outgoing link is no slower than the
// incoming one, or becomes the one packet "in transmission" otherwise; any
// other arrival while a packet is already in transmission is subject to
// drop-tail buffering. mismatchCount is decremented on every arrival to an
// already-busy port, regardless of which inner branch is taken, including
// the arrival that just reset it - a preserved quirk of the reference
// implementation that can leave mismatchCount one decrement below a
// "clean" accounting at the end of a tick. The idle-port branch, which
// only ever runs on a port's first (or first-after-drain) arrival, never
// decrements mismatchCount in the same call.
func (p *port) handleIncoming(now clock.Clock, seg tcp.Segment) {
	if p.inTransmission == nil {
		if p.mismatchRatio <= 1.0 {
			p.forward(now, seg)
		} else {
			s := seg
			p.inTransmission = &s
			p.mismatchCount = p.maxMismatchRatio - p.maxMismatchRatio/p.mismatchRatio
		}
	} else {
		if p.occupancy+seg.Len <= p.bufferCapacity {
			p.buffer = append(p.buffer, seg)
			p.occupancy += seg.Len
		} else {
			p.drops++
		}
		if p.mismatchCount < 1.0 {
			p.forward(now, *p.inTransmission)
			if len(p.buffer) > 0 {
				next := p.buffer[0]
				p.buffer = p.buffer[1:]
				p.occupancy -= next.Len
				p.inTransmission = &next
			} else {
				p.inTransmission = nil
			}
			p.mismatchCount = p.maxMismatchRatio
		}
		p.mismatchCount -= p.maxMismatchRatio / p.mismatchRatio
	}
}

// Drops returns the number of packets this port has discarded for lack of
// buffer space.
func (p *port) Drops() int { return p.drops }

// Router is a drop-tail, rate-pacing forwarding element between the
// sender-side link and the receiver-side link.
type Router struct {
	toReceiver *port // packets arriving from the sender, forwarded to the receiver
	toSender   *port // ACKs arriving from the receiver, forwarded to the sender

	lossRate float64
	rng      *rand.Rand
	errors   int
}

// NewRouter returns a Router pacing between a sender-facing link of
// senderBytesPerTick capacity and a receiver-facing link of
// receiverBytesPerTick capacity. Each direction's port gets its own
// drop-tail buffer of bufferCapacity bytes; the two directions do not
// share buffer space. lossRate is the per-data-segment
// probability, in [0,1], that an arriving segment on the sender-to-
// receiver path is marked as corrupted rather than forwarded cleanly,
// modeling link bit errors distinct from drop-tail buffer exhaustion.
func NewRouter(senderBytesPerTick, receiverBytesPerTick tcp.Bytes,
	bufferCapacity tcp.Bytes, lossRate float64, seed int64,
	forwardToReceiver, forwardToSender func(clock.Clock, tcp.Segment)) *Router {
	fwdRatio := float64(senderBytesPerTick) / float64(receiverBytesPerTick)
	revRatio := float64(receiverBytesPerTick) / float64(senderBytesPerTick)
	max := fwdRatio
	if revRatio > max {
		max = revRatio
	}
	toReceiver := newPort(fwdRatio, bufferCapacity, forwardToReceiver)
	toSender := newPort(revRatio, bufferCapacity, forwardToSender)
	toReceiver.maxMismatchRatio = max
	toSender.maxMismatchRatio = max
	return &Router{
		toReceiver: toReceiver,
		toSender:   toSender,
		lossRate:   lossRate,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// HandleFromSender routes a data segment arriving from the sender's link
// toward the receiver, first rolling it against the configured loss rate.
func (r *Router) HandleFromSender(now clock.Clock, seg tcp.Segment) {
	if r.lossRate > 0 && r.rng.Float64() < r.lossRate {
		seg.Error = true
		r.errors++
	}
	r.toReceiver.handleIncoming(now, seg)
}

// CorruptedSegments returns the number of data segments this Router has
// marked as lost under its configured loss rate.
func (r *Router) CorruptedSegments() int { return r.errors }

// HandleFromReceiver routes an ACK segment arriving from the receiver's
// link toward the sender.
func (r *Router) HandleFromReceiver(now clock.Clock, seg tcp.Segment) {
	r.toSender.handleIncoming(now, seg)
}

// DropsToReceiver returns the count of data segments dropped for lack of
// buffer space on the sender-to-receiver path.
func (r *Router) DropsToReceiver() int { return r.toReceiver.Drops() }

// DropsToSender returns the count of ACKs dropped for lack of buffer space
// on the receiver-to-sender path.
func (r *Router) DropsToSender() int { return r.toSender.Drops() }
