// SPDX-License-Identifier: GPL-3.0

// Package trace writes the per-tick metrics row to a CSV file, for
// plotting outside the simulator process. Adapted from the teacher's
// xplot writer's Open/Dot/Close lifecycle.
package trace

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/netlab-course/tcpsim/internal/simulator"
)

// Writer appends metrics rows to a CSV file, buffering writes until Close
// flushes and closes the underlying file.
type Writer struct {
	f *os.File
	w *csv.Writer
}

// Open creates (or truncates) the CSV file at path and writes its header
// row.
func Open(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open trace file %q", path)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "cwnd", "effct_window", "flight_size", "ssthresh", "rto_interval"}); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "write trace header")
	}
	return &Writer{f: f, w: w}, nil
}

// Dot appends one metrics row.
func (tw *Writer) Dot(row simulator.MetricsRow) {
	_ = tw.w.Write([]string{
		fmt.Sprintf("%d", row.Time),
		fmt.Sprintf("%d", row.CongWindow),
		fmt.Sprintf("%d", row.EffctWindow),
		fmt.Sprintf("%d", row.FlightSize),
		fmt.Sprintf("%d", row.SSThresh),
		fmt.Sprintf("%d", row.RTOInterval),
	})
}

// Close flushes buffered rows and closes the file.
func (tw *Writer) Close() error {
	tw.w.Flush()
	if err := tw.w.Error(); err != nil {
		tw.f.Close()
		return errors.Wrap(err, "flush trace file")
	}
	return errors.Wrap(tw.f.Close(), "close trace file")
}
