// SPDX-License-Identifier: GPL-3.0

package tcp

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netlab-course/tcpsim/internal/clock"
)

func dataSeg(seq Seq, ts clock.Clock) Segment {
	return Segment{DataSeq: seq, Len: MSS, Timestamp: ts}
}

func TestReceiverDelaysEveryOtherInOrderSegment(t *testing.T) {
	r := NewReceiver(0, zap.NewNop())
	timers := clock.NewWheel()

	_, sent1 := r.Handle(0, dataSeg(0, 0), timers)
	require.False(t, sent1, "first in-order segment is delayed")
	require.True(t, timers.Armed(delayedACKID))

	ack, sent2 := r.Handle(0, dataSeg(Seq(MSS), 1), timers)
	require.True(t, sent2, "second in-order segment ACKs immediately")
	require.Equal(t, Seq(2*MSS), ack.AckSeq)
}

func TestReceiverImmediateACKOnReorder(t *testing.T) {
	r := NewReceiver(0, zap.NewNop())
	timers := clock.NewWheel()

	ack, sent := r.Handle(0, dataSeg(Seq(MSS), 0), timers)
	require.True(t, sent, "out-of-order segment ACKs immediately")
	require.Equal(t, Seq(0), ack.AckSeq, "dup ACK still names the old cumulative point")
	require.Equal(t, clock.Clock(-1), ack.Timestamp)
}

func TestReceiverDrainsBufferedHoleFill(t *testing.T) {
	r := NewReceiver(0, zap.NewNop())
	timers := clock.NewWheel()

	r.Handle(0, dataSeg(Seq(MSS), 0), timers)
	ack, sent := r.Handle(0, dataSeg(0, 1), timers)
	require.True(t, sent)
	require.Equal(t, Seq(2*MSS), ack.AckSeq, "filling the hole acknowledges both segments")
}

func TestReceiverDingSuppressedByLaterAck(t *testing.T) {
	r := NewReceiver(0, zap.NewNop())
	timers := clock.NewWheel()

	r.Handle(0, dataSeg(0, 0), timers)
	fired := timers.Fire(0)
	require.Len(t, fired, 1)

	// a later immediate ACK (the reorder path) already covers this point
	r.lastAckSent = Seq(MSS)
	_, ok := r.Ding(fired[0].Data)
	require.False(t, ok)
}
