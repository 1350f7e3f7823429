// SPDX-License-Identifier: GPL-3.0

package netsim

import (
	"github.com/netlab-course/tcpsim/internal/clock"
	"github.com/netlab-course/tcpsim/internal/tcp"
)

// Endpoint dispatches inbound segments to a Sender (ACKs) or Receiver
// (data) and drives each side's per-tick timer checks, mirroring the
// reference Endpoint's dual role as the one object a Link hands
// arrivals to.
type Endpoint struct {
	Sender   *tcp.Sender
	Receiver *tcp.Receiver
	timers   *clock.Wheel
}

// NewEndpoint returns an Endpoint fronting the given Sender and Receiver,
// sharing the simulator's single timer Wheel.
func NewEndpoint(sender *tcp.Sender, receiver *tcp.Receiver, timers *clock.Wheel) *Endpoint {
	return &Endpoint{Sender: sender, Receiver: receiver, timers: timers}
}

// Handle routes one arriving segment: an ACK goes to the Sender, a data
// segment (len > 0) goes to the Receiver. A segment may satisfy both
// (never produced by this simulator's receiver, but the dispatch mirrors
// the reference's unconditional dual check) and any resulting outbound
// segments are concatenated.
func (e *Endpoint) Handle(now clock.Clock, seg tcp.Segment) []tcp.Segment {
	var out []tcp.Segment
	if seg.IsAck() && e.Sender != nil {
		out = append(out, e.Sender.HandleAck(now, seg, e.timers)...)
	}
	if seg.Len > 0 && e.Receiver != nil {
		if ack, ok := e.Receiver.Handle(now, seg, e.timers); ok {
			out = append(out, ack)
		}
	}
	return out
}

// ProcessSender fires the sender's due timers (RTO, idle-connection) and
// then drives a fresh send attempt, matching process(1) = "check expired
// timers for sender, then sender.send(nil)".
func (e *Endpoint) ProcessSender(now clock.Clock) []tcp.Segment {
	if e.Sender == nil {
		return nil
	}
	var out []tcp.Segment
	for _, f := range e.timers.FireFor("sender", now) {
		switch f.ID.Kind {
		case tcp.TimerKindRTO:
			out = append(out, e.Sender.HandleTimeout(now, e.timers)...)
		case tcp.TimerKindIdle:
			e.Sender.HandleIdleTimeout()
		}
	}
	out = append(out, e.Sender.Send(now, e.timers)...)
	return out
}

// ProcessReceiver fires the receiver's due delayed-ACK timer, matching
// process(2) = "check expired timers for receiver". The runner calls this
// after the receiver-facing link has delivered the tick's arrivals, so a
// delayed ACK armed earlier in the same tick fires after any freshly
// buffered segment, per the reference's ordering guarantee.
func (e *Endpoint) ProcessReceiver(now clock.Clock) []tcp.Segment {
	if e.Receiver == nil {
		return nil
	}
	var out []tcp.Segment
	for _, f := range e.timers.FireFor("receiver", now) {
		if seg, ok := e.Receiver.Ding(f.Data); ok {
			out = append(out, seg)
		}
	}
	return out
}
