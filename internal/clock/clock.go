// SPDX-License-Identifier: GPL-3.0

// Package clock provides the simulator's virtual time and timer wheel.
package clock

import (
	"fmt"
	"math"
)

// Clock represents virtual simulation time in ticks. One tick is the
// simulator's nominal round-trip time; all delays, RTO intervals, and
// scheduling decisions are expressed in Clock units.
type Clock int64

// Infinity is the maximum representable Clock value.
const Infinity = Clock(math.MaxInt64)

func (c Clock) String() string {
	return fmt.Sprintf("%d", int64(c))
}

// Add returns c plus the given number of ticks, saturating at Infinity.
func (c Clock) Add(ticks Clock) Clock {
	if c >= Infinity-ticks {
		return Infinity
	}
	return c + ticks
}
