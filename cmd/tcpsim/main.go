// SPDX-License-Identifier: GPL-3.0

// Command tcpsim runs the discrete-event TCP congestion-control simulator
// against a fixed sender-router-receiver topology and reports per-round
// congestion metrics and end-of-run sender utilization.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/netlab-course/tcpsim/internal/logx"
	"github.com/netlab-course/tcpsim/internal/simulator"
	"github.com/netlab-course/tcpsim/internal/tcp"
	"github.com/netlab-course/tcpsim/internal/trace"
)

var reportNames = map[string]logx.Level{
	"simulator": logx.Simulator,
	"links":     logx.Links,
	"routers":   logx.Routers,
	"senders":   logx.Senders,
	"receivers": logx.Receivers,
	"rto":       logx.RTOEstimate,
}

func parseReportLevel(s string) (logx.Level, error) {
	var level logx.Level
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		bit, ok := reportNames[name]
		if !ok {
			return 0, errors.Errorf("unknown report level %q", name)
		}
		level |= bit
	}
	return level, nil
}

func newRootCmd() *cobra.Command {
	var (
		bufferBytes int64
		rcvWindow   int64
		asymmetry   float64
		report      string
		tracePath   string
		verbose     bool
		seed        int64
	)

	cmd := &cobra.Command{
		Use:   "tcpsim <Tahoe|Reno|NewReno> <iterations> <loss-rate>",
		Short: "Simulate TCP congestion control over a three-node topology",
		Long: `tcpsim is a discrete-event, round-trip-time-granular network simulator
that reproduces TCP congestion-control behavior (Tahoe, Reno, NewReno)
over a sender host <-> bottleneck router <-> receiver host topology.

It reports a per-round congestion window / effective window / flight
size / slow-start threshold / RTO interval table, followed by the
sender's end-of-run link utilization.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			variant, err := tcp.ParseVariant(args[0])
			if err != nil {
				return err
			}
			iterations, err := strconv.Atoi(args[1])
			if err != nil || iterations <= 0 {
				return errors.Errorf("iterations must be a positive integer, got %q", args[1])
			}
			lossRate, err := strconv.ParseFloat(args[2], 64)
			if err != nil || lossRate < 0 || lossRate > 1 {
				return errors.Errorf("loss rate must be a float in [0,1], got %q", args[2])
			}
			level, err := parseReportLevel(report)
			if err != nil {
				return err
			}

			logs, err := logx.New(level, verbose)
			if err != nil {
				return errors.Wrap(err, "init logging")
			}
			defer logs.Sync()

			var tw *trace.Writer
			var traceFn func(simulator.MetricsRow)
			if tracePath != "" {
				tw, err = trace.Open(tracePath)
				if err != nil {
					return err
				}
				defer tw.Close()
				traceFn = tw.Dot
			}

			cfg := simulator.Config{
				Variant:     variant,
				Iterations:  iterations,
				LossRate:    lossRate,
				BufferBytes: tcp.Bytes(bufferBytes),
				RcvWindow:   tcp.Bytes(rcvWindow),
				Asymmetry:   asymmetry,
				Seed:        seed,
				Report:      level,
				Verbose:     verbose,
			}
			sim := simulator.New(cfg, cmd.OutOrStdout(), logs, traceFn)
			sim.Run()
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&bufferBytes, "buffer-bytes", int64(simulator.DefaultBufferBytes), "router drop-tail buffer capacity, bytes")
	flags.Int64Var(&rcvWindow, "rcv-window", int64(tcp.DefaultRcvWindow), "receiver's maximum advertised window, bytes")
	flags.Float64Var(&asymmetry, "asymmetry", simulator.DefaultAsymmetry, "link2/link1 transmission-time ratio")
	flags.StringVar(&report, "report", "simulator,links,routers,senders,receivers", "comma-separated reporting levels: simulator,links,routers,senders,receivers,rto")
	flags.StringVar(&tracePath, "trace", "", "optional path to write the per-tick metrics row as CSV")
	flags.BoolVar(&verbose, "verbose", false, "raise logging to debug level")
	flags.Int64Var(&seed, "seed", 1, "PRNG seed for the router's packet loss model")

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tcpsim:", err)
		os.Exit(1)
	}
}
