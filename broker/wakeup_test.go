package broker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWakeupSchedulerFiresAfterDelay(t *testing.T) {
	var fired int32
	s := newWakeupScheduler(10*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	s.arm()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&fired) == 1 }, time.Second, time.Millisecond)
}

func TestWakeupSchedulerArmIsIdempotentWithinWindow(t *testing.T) {
	var fires int32
	s := newWakeupScheduler(40*time.Millisecond, func() { atomic.AddInt32(&fires, 1) })

	s.arm()
	s.arm()
	s.arm()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&fires) == 1 }, time.Second, time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	require.EqualValues(t, 1, atomic.LoadInt32(&fires), "coalesced arms during the window must produce exactly one fire")
}

func TestWakeupSchedulerRearmsAfterFiring(t *testing.T) {
	var fires int32
	s := newWakeupScheduler(10*time.Millisecond, func() { atomic.AddInt32(&fires, 1) })

	s.arm()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&fires) == 1 }, time.Second, time.Millisecond)

	s.arm()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&fires) == 2 }, time.Second, time.Millisecond)
}

func TestWakeupSchedulerStopPreventsFutureArm(t *testing.T) {
	var fires int32
	s := newWakeupScheduler(5*time.Millisecond, func() { atomic.AddInt32(&fires, 1) })
	s.stop()
	s.arm()

	time.Sleep(30 * time.Millisecond)
	require.EqualValues(t, 0, atomic.LoadInt32(&fires), "arm after stop must be a no-op")
}

func TestWakeupSchedulerStopCancelsPendingTimer(t *testing.T) {
	var fires int32
	s := newWakeupScheduler(30*time.Millisecond, func() { atomic.AddInt32(&fires, 1) })
	s.arm()
	s.stop()

	time.Sleep(60 * time.Millisecond)
	require.EqualValues(t, 0, atomic.LoadInt32(&fires), "stop must cancel an already-armed timer")
}
