// SPDX-License-Identifier: GPL-3.0

package tcp

import "github.com/netlab-course/tcpsim/internal/clock"

// Segment is a TCP-like protocol unit exchanged between sender and
// receiver. A Segment carrying data has Len > 0; a pure ACK has Len == 0
// and AckSeq >= 0. The reference model allows a single segment to carry
// both, but this simulator's receiver never piggybacks data on an ACK.
type Segment struct {
	DataSeq   Seq
	AckSeq    Seq // -1 when this segment carries no acknowledgement
	Len       Bytes
	RcvWindow Bytes
	// Timestamp is the Clock value the segment was originally sent. A
	// retransmission carries Timestamp -1, signaling the RTO estimator to
	// skip the RTT sample per Karn's algorithm.
	Timestamp clock.Clock
	// Error marks a segment the router corrupted in transit under the
	// configured packet loss rate. The receiver drops such a segment
	// silently rather than treating it as a protocol event.
	Error bool
}

// IsAck reports whether this segment carries an acknowledgement.
func (s Segment) IsAck() bool {
	return s.AckSeq >= 0
}

// NextSeq returns the sequence number immediately after this segment's
// data payload.
func (s Segment) NextSeq() Seq {
	return s.DataSeq + Seq(s.Len)
}

// Ordinal returns a 1-based segment number derived from DataSeq, used only
// for human-readable logging.
func (s Segment) Ordinal() int64 {
	return int64(s.DataSeq)/int64(MSS) + 1
}

// AckOrdinal returns a 1-based segment number derived from AckSeq, used
// only for human-readable logging.
func (s Segment) AckOrdinal() int64 {
	if s.AckSeq < 0 {
		return 0
	}
	return int64(s.AckSeq)/int64(MSS) + 1
}

// buffer is a sequence-ordered min-heap of out-of-order data segments,
// used by the receiver to detect and drain filled holes.
type buffer []Segment

func (b buffer) Len() int { return len(b) }

func (b buffer) Less(i, j int) bool { return b[i].DataSeq < b[j].DataSeq }

func (b buffer) Swap(i, j int) { b[i], b[j] = b[j], b[i] }

func (b *buffer) Push(x any) {
	*b = append(*b, x.(Segment))
}

func (b *buffer) Pop() any {
	old := *b
	n := len(old)
	s := old[n-1]
	*b = old[:n-1]
	return s
}
