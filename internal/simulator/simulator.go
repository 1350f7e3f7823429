// SPDX-License-Identifier: GPL-3.0

// Package simulator drives the per-tick control flow that ties the
// Link, Router, Sender, and Receiver components together and reports
// the resulting congestion metrics and end-of-run utilization.
package simulator

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/netlab-course/tcpsim/internal/clock"
	"github.com/netlab-course/tcpsim/internal/logx"
	"github.com/netlab-course/tcpsim/internal/netsim"
	"github.com/netlab-course/tcpsim/internal/tcp"
)

// Config holds every tunable knob a Simulator run accepts, gathered from
// the CLI's three positional arguments plus its optional flags.
type Config struct {
	Variant     tcp.Variant
	Iterations  int
	LossRate    float64
	BufferBytes tcp.Bytes
	RcvWindow   tcp.Bytes
	Asymmetry   float64
	TotalBytes  tcp.Bytes
	Seed        int64
	Report      logx.Level
	Verbose     bool
}

// DefaultBufferBytes is the router's drop-tail queue capacity when the CLI
// does not override it: room for six full segments plus 100 bytes,
// matching the reference tuning.
const DefaultBufferBytes tcp.Bytes = 6*tcp.MSS + 100

// DefaultAsymmetry is the link2/link1 transmission-time ratio when the CLI
// does not override it.
const DefaultAsymmetry = 10.0

// DefaultTotalBytes is the size of the single byte buffer fed to the
// sender at the start of a run when Config.TotalBytes is not positive.
// The CLI has no flag for it.
const DefaultTotalBytes tcp.Bytes = 10 * 1024 * 1024

// linkPropagation is the fixed one-way propagation delay of both links, in
// ticks.
const linkPropagation clock.Clock = 1

// Result is the outcome of a completed Simulator.Run, used for both the
// end-of-session stdout banner and test assertions.
type Result struct {
	Ticks             int
	ActualBytes       tcp.Bytes
	PotentialBytes    tcp.Bytes
	UtilizationPct    int
	Retransmits       int
	DropsToReceiver   int
	DropsToSender     int
	CorruptedSegments int
}

// Simulator wires one Sender/Receiver pair across a bottleneck Router and
// reports per-tick congestion metrics to w.
type Simulator struct {
	cfg Config
	w   io.Writer

	timers *clock.Wheel
	link1  *netsim.Link // sender <-> router
	link2  *netsim.Link // router <-> receiver
	router *netsim.Router

	senderEP   *netsim.Endpoint
	receiverEP *netsim.Endpoint

	sender   *tcp.Sender
	receiver *tcp.Receiver

	logs *logx.Registry
	log  *zap.Logger

	trace func(row MetricsRow)
}

// New builds a Simulator ready to Run, wiring the Link/Router topology
// described by spec.md §2: sender host <-> link1 <-> router <-> link2 <->
// receiver host.
func New(cfg Config, w io.Writer, logs *logx.Registry, trace func(MetricsRow)) *Simulator {
	if cfg.BufferBytes <= 0 {
		cfg.BufferBytes = DefaultBufferBytes
	}
	if cfg.RcvWindow <= 0 {
		cfg.RcvWindow = tcp.DefaultRcvWindow
	}
	if cfg.Asymmetry <= 0 {
		cfg.Asymmetry = DefaultAsymmetry
	}
	if cfg.TotalBytes <= 0 {
		cfg.TotalBytes = DefaultTotalBytes
	}

	timers := clock.NewWheel()

	link1BPT := tcp.MSS
	link2BPT := tcp.Bytes(float64(tcp.MSS) / cfg.Asymmetry)
	if link2BPT < 1 {
		link2BPT = 1
	}
	link1 := netsim.NewLink(linkPropagation, link1BPT)
	link2 := netsim.NewLink(linkPropagation, link2BPT)

	sender := tcp.NewSender(cfg.Variant, cfg.TotalBytes, logs.For("sender", logx.Senders))
	receiver := tcp.NewReceiver(cfg.RcvWindow, logs.For("receiver", logx.Receivers))

	router := netsim.NewRouter(link1BPT, link2BPT, cfg.BufferBytes, cfg.LossRate, cfg.Seed,
		func(now clock.Clock, seg tcp.Segment) { link2.SendAtoB(now, seg) },
		func(now clock.Clock, seg tcp.Segment) { link1.SendBtoA(now, seg) },
	)

	senderEP := netsim.NewEndpoint(sender, nil, timers)
	receiverEP := netsim.NewEndpoint(nil, receiver, timers)

	return &Simulator{
		cfg:        cfg,
		w:          w,
		timers:     timers,
		link1:      link1,
		link2:      link2,
		router:     router,
		senderEP:   senderEP,
		receiverEP: receiverEP,
		sender:     sender,
		receiver:   receiver,
		logs:       logs,
		log:        logs.For("simulator", logx.Simulator),
		trace:      trace,
	}
}

// MetricsRow is one tick's worth of the stdout metrics table, also handed
// to the optional CSV trace writer.
type MetricsRow struct {
	Time        clock.Clock
	CongWindow  tcp.Bytes
	EffctWindow tcp.Bytes
	FlightSize  tcp.Bytes
	SSThresh    tcp.Bytes
	RTOInterval clock.Clock
}

// Run advances the simulator for cfg.Iterations ticks, printing the
// banner, header row, one metrics row per tick, and the closing
// utilization line to w, and returns the final Result.
func (s *Simulator) Run() Result {
	fmt.Fprintf(s.w, "tcpsim: %s sender, %d iterations, loss rate %.4f\n",
		s.cfg.Variant, s.cfg.Iterations, s.cfg.LossRate)
	fmt.Fprintln(s.w, "Time\tCongWindow\tEffctWindow\tFlightSize\tSSThresh\tRTOinterval")

	var now clock.Clock
	for i := 0; i < s.cfg.Iterations; i++ {
		s.tick(now)

		row := MetricsRow{
			Time:        now,
			CongWindow:  s.sender.Cwnd(),
			EffctWindow: s.sender.EffectiveWindow(),
			FlightSize:  s.sender.FlightSize(),
			SSThresh:    s.sender.SSThresh(),
			RTOInterval: s.sender.RTOInterval(),
		}
		fmt.Fprintf(s.w, "%d\t%d\t%d\t%d\t%d\t%d\n",
			row.Time, row.CongWindow, row.EffctWindow, row.FlightSize, row.SSThresh, row.RTOInterval)
		if s.trace != nil {
			s.trace(row)
		}
		now = now.Add(1)
	}

	actual := tcp.Bytes(s.sender.LastByteAcked())
	potential := (s.cfg.BufferBytes + tcp.MSS) * tcp.Bytes(s.cfg.Iterations)
	pct := 0
	if potential > 0 {
		pct = int(float64(actual)*100/float64(potential) + 0.5)
	}

	result := Result{
		Ticks:             s.cfg.Iterations,
		ActualBytes:       actual,
		PotentialBytes:    potential,
		UtilizationPct:    pct,
		Retransmits:       s.sender.Retransmits(),
		DropsToReceiver:   s.router.DropsToReceiver(),
		DropsToSender:     s.router.DropsToSender(),
		CorruptedSegments: s.router.CorruptedSegments(),
	}
	fmt.Fprintf(s.w, "--- %s run complete ---\n", s.cfg.Variant)
	if s.cfg.Verbose {
		fmt.Fprintf(s.w, "transmitted %s of a potential %s (%d retransmits, %d router drops, %d corrupted)\n",
			humanize.IBytes(uint64(actual)), humanize.IBytes(uint64(potential)),
			result.Retransmits, result.DropsToReceiver+result.DropsToSender, result.CorruptedSegments)
	}
	fmt.Fprintf(s.w, "Sender utilization: %d %%\n", result.UtilizationPct)
	return result
}

// tick performs one tick of spec.md §2's control flow, in the five
// numbered steps below. The clock itself is advanced by Run.
func (s *Simulator) tick(now clock.Clock) {
	// 1. link1 moves pending frames both directions.
	for _, seg := range s.link1.ProcessAtoB(now) {
		s.router.HandleFromSender(now, seg)
	}
	for _, seg := range s.link1.ProcessBtoA(now) {
		for _, out := range s.senderEP.Handle(now, seg) {
			// Any segment an ACK handler returns is a retransmission: a
			// data segment bound for the receiver, so it travels the
			// same direction as a fresh send.
			s.link1.SendAtoB(now, out)
		}
	}

	// 2. sender endpoint fires expired timers and, if anything is now
	// sendable, emits a fresh burst; link1 flushes it toward the router.
	for _, seg := range s.senderEP.ProcessSender(now) {
		s.link1.SendAtoB(now, seg)
	}

	// 3. link2 moves frames: data arriving at the receiver, ACKs arriving
	// back at the router (which the router immediately re-paces onward to
	// link1, per HandleFromReceiver's forward closure).
	var freshAcks []tcp.Segment
	for _, seg := range s.link2.ProcessAtoB(now) {
		freshAcks = append(freshAcks, s.receiverEP.Handle(now, seg)...)
	}
	for _, seg := range s.link2.ProcessBtoA(now) {
		s.router.HandleFromReceiver(now, seg)
	}

	// 4. receiver endpoint fires its delayed-ACK timer, after the fresh
	// arrivals above, per spec.md §5's ordering guarantee.
	freshAcks = append(freshAcks, s.receiverEP.ProcessReceiver(now)...)

	// 5. link2 flushes the tick's ACKs toward the router.
	for _, ack := range freshAcks {
		s.link2.SendBtoA(now, ack)
	}
}
