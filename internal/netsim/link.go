// SPDX-License-Identifier: GPL-3.0

// Package netsim implements the Link and Router network elements and the
// Endpoint orchestrator that ties a Sender and Receiver together.
package netsim

import (
	"github.com/netlab-course/tcpsim/internal/clock"
	"github.com/netlab-course/tcpsim/internal/tcp"
)

// Mode names the direction(s) of a Link. Link itself takes no Mode: it
// exposes ProcessAtoB and ProcessBtoA, one per direction, each with its
// own "time since last processed" measurement, and has no method that
// advances both directions in one call.
type Mode int

const (
	// Both names both directions.
	Both Mode = iota
	// AtoB names only the A-to-B direction.
	AtoB
	// BtoA names only the B-to-A direction.
	BtoA
)

// inFlight is a segment in transit across a Link, carrying the remaining
// delay (ticks) until it arrives.
type inFlight struct {
	seg       tcp.Segment
	remaining clock.Clock
}

// direction is one FIFO queue of in-flight segments traveling the same
// way across a Link.
type direction struct {
	queue         []inFlight
	lastProcessed clock.Clock
}

// Link is a full-duplex, point-to-point connection with a fixed
// propagation delay and per-byte transmission time. Within one direction,
// a segment's assigned delay is never less than the delay already
// assigned to the segment ahead of it in the queue - a coarse
// serialization approximation that keeps delivery order equal to send
// order without modeling byte-by-byte interleaving.
type Link struct {
	propagation  clock.Clock
	bytesPerTick tcp.Bytes
	ab, ba       direction
}

// NewLink returns a Link with the given propagation delay and per-tick
// transmission capacity.
func NewLink(propagation clock.Clock, bytesPerTick tcp.Bytes) *Link {
	return &Link{propagation: propagation, bytesPerTick: bytesPerTick}
}

// TransmissionTime returns the number of ticks needed to serialize a
// segment of the given length onto this Link.
func (l *Link) TransmissionTime(len tcp.Bytes) clock.Clock {
	if len <= 0 {
		return 0
	}
	ticks := (len + l.bytesPerTick - 1) / l.bytesPerTick
	return clock.Clock(ticks)
}

// SendAtoB enqueues seg for delivery in the A-to-B direction.
func (l *Link) SendAtoB(now clock.Clock, seg tcp.Segment) {
	l.enqueue(&l.ab, now, seg)
}

// SendBtoA enqueues seg for delivery in the B-to-A direction.
func (l *Link) SendBtoA(now clock.Clock, seg tcp.Segment) {
	l.enqueue(&l.ba, now, seg)
}

func (l *Link) enqueue(d *direction, now clock.Clock, seg tcp.Segment) {
	delay := l.propagation + l.TransmissionTime(seg.Len)
	if n := len(d.queue); n > 0 {
		if prev := d.queue[n-1].remaining; delay < prev {
			delay = prev
		}
	}
	d.queue = append(d.queue, inFlight{seg: seg, remaining: delay})
}

// ProcessAtoB advances the A-to-B direction to now and returns every
// segment that has arrived.
func (l *Link) ProcessAtoB(now clock.Clock) []tcp.Segment {
	return l.deliver(&l.ab, now)
}

// ProcessBtoA advances the B-to-A direction to now and returns every
// segment that has arrived.
func (l *Link) ProcessBtoA(now clock.Clock) []tcp.Segment {
	return l.deliver(&l.ba, now)
}

func (l *Link) deliver(d *direction, now clock.Clock) []tcp.Segment {
	elapsed := now - d.lastProcessed
	d.lastProcessed = now
	if elapsed <= 0 || len(d.queue) == 0 {
		return nil
	}
	var arrived []tcp.Segment
	var remaining []inFlight
	for _, p := range d.queue {
		p.remaining -= elapsed
		if p.remaining > 0 {
			remaining = append(remaining, p)
		} else {
			arrived = append(arrived, p.seg)
		}
	}
	d.queue = remaining
	return arrived
}
