// SPDX-License-Identifier: GPL-3.0

package clock

import (
	"testing"

	"github.com/netlab-course/tcpsim/internal/errs"
	"github.com/stretchr/testify/require"
)

func TestWheelFiresInRegistrationOrder(t *testing.T) {
	w := NewWheel()
	require.NoError(t, w.Arm(ID{"sender", 0}, 5, "a"))
	require.NoError(t, w.Arm(ID{"router", 0}, 5, "b"))
	require.NoError(t, w.Arm(ID{"receiver", 0}, 3, "c"))

	fired := w.Fire(5)
	require.Len(t, fired, 3)
	require.Equal(t, "a", fired[0].Data)
	require.Equal(t, "b", fired[1].Data)
	require.Equal(t, "c", fired[2].Data)
	require.Equal(t, 0, w.Len())
}

func TestWheelDoesNotFireTimersArmedDuringFire(t *testing.T) {
	w := NewWheel()
	require.NoError(t, w.Arm(ID{"sender", 0}, 1, nil))

	fired := w.Fire(10)
	require.Len(t, fired, 1)
	// re-arming for the same, already-elapsed time must not retroactively
	// appear in the fired set just returned
	require.NoError(t, w.Arm(ID{"sender", 0}, 1, nil))
	require.Equal(t, 1, w.Len())
}

func TestWheelDuplicateArmIsFatal(t *testing.T) {
	w := NewWheel()
	require.NoError(t, w.Arm(ID{"sender", 0}, 1, nil))
	err := w.Arm(ID{"sender", 0}, 2, nil)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.InvalidTimer))
}

func TestWheelCancelUnknownIsFatal(t *testing.T) {
	w := NewWheel()
	err := w.Cancel(ID{"sender", 0})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.InvalidTimer))
}

func TestWheelNextAt(t *testing.T) {
	w := NewWheel()
	_, ok := w.NextAt()
	require.False(t, ok)

	require.NoError(t, w.Arm(ID{"sender", 0}, 9, nil))
	require.NoError(t, w.Arm(ID{"sender", 1}, 4, nil))
	at, ok := w.NextAt()
	require.True(t, ok)
	require.Equal(t, Clock(4), at)
}
