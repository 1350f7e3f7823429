// SPDX-License-Identifier: GPL-3.0

package netsim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netlab-course/tcpsim/internal/tcp"
)

func TestLinkDeliversInOrder(t *testing.T) {
	l := NewLink(1, 1500)
	l.SendAtoB(0, tcp.Segment{DataSeq: 0, Len: 1500})
	l.SendAtoB(0, tcp.Segment{DataSeq: 1500, Len: 1500})

	arrived := l.ProcessAtoB(1)
	require.Empty(t, arrived)

	arrived = l.ProcessAtoB(3)
	require.Len(t, arrived, 2)
	require.Equal(t, tcp.Seq(0), arrived[0].DataSeq)
	require.Equal(t, tcp.Seq(1500), arrived[1].DataSeq)
}

func TestLinkDelayNeverDecreasesWithinDirection(t *testing.T) {
	l := NewLink(0, 10000) // fast transmission relative to a slow first packet
	l.SendAtoB(0, tcp.Segment{DataSeq: 0, Len: 100000})
	l.SendAtoB(0, tcp.Segment{DataSeq: 100000, Len: 1})

	arrived := l.ProcessAtoB(5)
	require.Empty(t, arrived, "both packets should still be in flight before the slow packet's delay elapses")
}

func TestLinkDirectionsAreIndependent(t *testing.T) {
	l := NewLink(1, 1500)
	l.SendAtoB(0, tcp.Segment{DataSeq: 0, Len: 1500})
	l.SendBtoA(0, tcp.Segment{AckSeq: 0, Len: 0})

	a := l.ProcessAtoB(2)
	b := l.ProcessBtoA(2)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
}
