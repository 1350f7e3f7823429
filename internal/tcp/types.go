// SPDX-License-Identifier: GPL-3.0

// Package tcp implements the TCP-like segment model, RTO estimator, sender
// congestion-control state machine, and receiver ACK generation that drive
// the simulator.
package tcp

import (
	"github.com/netlab-course/tcpsim/internal/errs"
)

// Bytes is a byte count.
type Bytes int64

// Seq is a byte-offset sequence number.
type Seq int64

// MSS is the maximum segment size used throughout the simulation,
// matching the reference tuning.
const MSS Bytes = 128

// IW is the initial congestion window: one full segment.
const IW Bytes = MSS

// InitialSSThresh is the slow-start threshold a freshly constructed
// Sender starts with, before any loss event has occurred.
const InitialSSThresh Bytes = 65535

// DefaultRcvWindow is the receive window a Sender assumes until the first
// ACK carries the peer's actual advertisement.
const DefaultRcvWindow Bytes = 65536

// Variant selects which congestion-control algorithm a Sender runs.
type Variant int

const (
	Tahoe Variant = iota
	Reno
	NewReno
)

func (v Variant) String() string {
	switch v {
	case Tahoe:
		return "Tahoe"
	case Reno:
		return "Reno"
	case NewReno:
		return "NewReno"
	default:
		return "Unknown"
	}
}

// ParseVariant maps a case-sensitive variant name to a Variant. An
// unrecognized name is a fatal UnknownVariant error, matching the endpoint
// constructor's dispatch in the reference implementation.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "Tahoe":
		return Tahoe, nil
	case "Reno":
		return Reno, nil
	case "NewReno":
		return NewReno, nil
	default:
		return 0, errs.New(errs.UnknownVariant, "unknown TCP sender type %q", s)
	}
}

func maxBytes(a, b Bytes) Bytes {
	if a > b {
		return a
	}
	return b
}

func minBytes(a, b Bytes) Bytes {
	if a < b {
		return a
	}
	return b
}

// roundDownToMSS rounds b down to the nearest multiple of MSS, matching the
// reference's ssthresh-to-segment-boundary rounding on loss.
func roundDownToMSS(b Bytes) Bytes {
	return (b / MSS) * MSS
}
