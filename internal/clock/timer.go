// SPDX-License-Identifier: GPL-3.0

package clock

import (
	"github.com/netlab-course/tcpsim/internal/errs"
)

// ID identifies a single armed timer. Component names the owner
// (e.g. "sender", "receiver") and Kind distinguishes multiple timers a
// single component may hold (e.g. the sender's RTO vs idle-connection).
type ID struct {
	Component string
	Kind      int
}

// entry is the wheel's own clone of an armed timer. Callers construct the
// timer's data by value; the wheel keeps its own copy, so a caller mutating
// its local variable after arming has no effect on the fired timer.
type entry struct {
	id   ID
	at   Clock
	data any
}

// Fired is an expired timer handed back to the caller by Fire.
type Fired struct {
	ID   ID
	Data any
}

// Wheel is a simple list of armed timers, kept in registration order. It fires timers in
// registration order among those due at or before a given time, and does
// not fire timers armed during the course of a single Fire call — matching
// the snapshot-then-fire behavior of the reference simulator's timer check.
type Wheel struct {
	entries []entry
}

// NewWheel returns an empty Wheel.
func NewWheel() *Wheel {
	return &Wheel{}
}

// Arm registers a new timer for id, due at the given time. Arming an id
// that is already armed is a fatal InvalidTimer error: callers must Cancel
// before re-arming.
func (w *Wheel) Arm(id ID, at Clock, data any) error {
	for _, e := range w.entries {
		if e.id == id {
			return errs.New(errs.InvalidTimer, "timer %v already armed", id)
		}
	}
	w.entries = append(w.entries, entry{id: id, at: at, data: data})
	return nil
}

// Cancel removes the armed timer for id. Canceling an id that is not armed
// is a fatal InvalidTimer error.
func (w *Wheel) Cancel(id ID) error {
	for i, e := range w.entries {
		if e.id == id {
			w.entries = append(w.entries[:i], w.entries[i+1:]...)
			return nil
		}
	}
	return errs.New(errs.InvalidTimer, "timer %v not armed", id)
}

// Armed reports whether id currently has a pending timer.
func (w *Wheel) Armed(id ID) bool {
	for _, e := range w.entries {
		if e.id == id {
			return true
		}
	}
	return false
}

// Fire returns every timer due at or before now, in the order they were
// registered, and removes them from the wheel. Timers armed by the caller
// while processing the returned slice are not included, since Fire
// snapshots before removing.
func (w *Wheel) Fire(now Clock) []Fired {
	var fired []Fired
	var remaining []entry
	for _, e := range w.entries {
		if e.at <= now {
			fired = append(fired, Fired{ID: e.id, Data: e.data})
		} else {
			remaining = append(remaining, e)
		}
	}
	w.entries = remaining
	return fired
}

// FireFor returns every timer due at or before now whose ID.Component
// equals component, in registration order, and removes them from the
// wheel. This is the component-scoped form of Fire used by the
// orchestrator, matching check_expired_timers(for_component): a single
// check only ever drains one component's timers, even though sender and
// receiver timers share one Wheel.
func (w *Wheel) FireFor(component string, now Clock) []Fired {
	var fired []Fired
	var remaining []entry
	for _, e := range w.entries {
		if e.id.Component == component && e.at <= now {
			fired = append(fired, Fired{ID: e.id, Data: e.data})
		} else {
			remaining = append(remaining, e)
		}
	}
	w.entries = remaining
	return fired
}

// Len returns the number of currently armed timers.
func (w *Wheel) Len() int {
	return len(w.entries)
}

// NextAt returns the earliest due time among armed timers and true, or
// false if the wheel is empty.
func (w *Wheel) NextAt() (Clock, bool) {
	if len(w.entries) == 0 {
		return 0, false
	}
	min := w.entries[0].at
	for _, e := range w.entries[1:] {
		if e.at < min {
			min = e.at
		}
	}
	return min, true
}
