// SPDX-License-Identifier: GPL-3.0

// Package logx wires structured, per-component logging for a simulator run.
package logx

import (
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a reporting-level bitmask, matching the flags documented for
// the simulator's --report option.
type Level uint

const (
	Simulator Level = 1 << iota
	Links
	Routers
	Senders
	Receivers
	RTOEstimate
)

// Registry owns one zap.Logger per component, gated by a Level mask.
type Registry struct {
	runID  uuid.UUID
	base   *zap.Logger
	levels Level
}

// New returns a Registry reporting at the given Level mask. verbose raises
// the base logger to Debug, otherwise it logs at Info.
func New(levels Level, verbose bool) (*Registry, error) {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	enc := zapcore.NewConsoleEncoder(cfg)
	lvl := zapcore.InfoLevel
	if verbose {
		lvl = zapcore.DebugLevel
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(os.Stderr), lvl)
	base := zap.New(core)
	return &Registry{runID: uuid.New(), base: base, levels: levels}, nil
}

// RunID returns the UUID stamped into every log line of this run.
func (r *Registry) RunID() uuid.UUID {
	return r.runID
}

// For returns the named sub-logger, silenced (a nop core) unless enabled is
// set in the Registry's reporting mask.
func (r *Registry) For(name string, enabled Level) *zap.Logger {
	l := r.base.Named(name).With(zap.String("run", r.runID.String()))
	if r.levels&enabled == 0 {
		return zap.NewNop()
	}
	return l
}

// Sync flushes the underlying logger.
func (r *Registry) Sync() error {
	return r.base.Sync()
}
