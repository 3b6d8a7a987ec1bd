package core

import "testing"

// setupShoulder places start at 0 and the shoulder at 100 and begins the cycle
// with the carriage back at the start
func setupShoulder(t *testing.T) (*Drive, *recordingOutputs) {
	t.Helper()
	d, out, _ := newTestDrive(t, testParams())
	d.SetStart()
	d.SetCurrentPosition(100)
	d.SetShoulder()
	d.SetCurrentPosition(0)
	d.BeginThreadToShoulder(true)
	if d.ShoulderState() != ShoulderIndexing {
		t.Fatalf("Expected indexing, got %v", d.ShoulderState())
	}
	return d, out
}

func TestShoulderHold(t *testing.T) {
	d, out := setupShoulder(t)

	for desired := int32(1); desired <= 100; desired++ {
		d.SetDesiredPosition(desired)
		runTicks(d, 4, 100, true)
	}
	if !d.IsAtShoulder() {
		t.Fatalf("Expected to be at the shoulder, current=%d", d.Position())
	}

	d.SetDesiredPosition(300)
	runTicks(d, 100, 100, true)
	if d.ShoulderState() != ShoulderHolding {
		t.Fatalf("Expected holding, got %v", d.ShoulderState())
	}
	if d.Position() > 100 {
		t.Errorf("Expected no motion past the shoulder, got %d", d.Position())
	}
	if d.DistanceToShoulder() != 200 {
		t.Errorf("Expected distance 200, got %d", d.DistanceToShoulder())
	}
	if d.CheckStepBacklog() {
		t.Error("Backlog monitor must not fire while holding")
	}

	// back below the shoulder releases the hold
	steps := out.rising
	d.SetDesiredPosition(90)
	runTicks(d, 40, 100, false)
	if d.ShoulderState() != ShoulderIndexing {
		t.Errorf("Expected indexing again, got %v", d.ShoulderState())
	}
	if out.rising == steps {
		t.Error("Expected pulses after releasing the hold")
	}
}

func TestShoulderHoldNegativeDirection(t *testing.T) {
	d, _, _ := newTestDrive(t, testParams())
	d.SetStart()
	d.SetCurrentPosition(-50)
	d.SetShoulder()
	d.SetCurrentPosition(0)
	d.BeginThreadToShoulder(true)

	d.SetDesiredPosition(-51)
	d.Tick(100, false)
	if d.ShoulderState() != ShoulderHolding {
		t.Errorf("Expected holding past a negative shoulder, got %v", d.ShoulderState())
	}
	d.SetDesiredPosition(-49)
	d.Tick(100, false)
	if d.ShoulderState() != ShoulderIndexing {
		t.Errorf("Expected indexing before a negative shoulder, got %v", d.ShoulderState())
	}
}

func TestResetToShoulder(t *testing.T) {
	d, _, _ := newTestDrive(t, testParams())
	d.SetStepsPerUnitPitch(20)
	d.SetDesiredPosition(37)
	d.ResetToShoulder()
	if d.Position() != 20 {
		t.Errorf("Expected current 20, got %d", d.Position())
	}

	// residual is always below one pitch, in either direction
	for _, desired := range []int32{-1000, -37, 0, 19, 20, 555} {
		d.SetCurrentPosition(0)
		d.SetDesiredPosition(desired)
		d.ResetToShoulder()
		if r := desired - d.Position(); r <= -20 || r >= 20 {
			t.Errorf("desired %d: residual %d not below one pitch", desired, r)
		}
	}
}

func TestResetToShoulderWithoutPitch(t *testing.T) {
	d, _, _ := newTestDrive(t, testParams())
	d.SetDesiredPosition(37)
	d.ResetToShoulder()
	if d.Position() != 0 {
		t.Errorf("Expected no change without a pitch, got %d", d.Position())
	}
}

func TestMoveToStartRounding(t *testing.T) {
	d, _, _ := newTestDrive(t, testParams())
	d.SetStepsPerUnitPitch(100)
	d.SetCurrentPosition(250)
	d.SetStart()
	d.SetCurrentPosition(0)
	d.BeginThreadToShoulder(true)

	d.MoveToStart()
	if d.Position() != -300 {
		t.Errorf("Expected current -300, got %d", d.Position())
	}
	if d.StartPosition() != -50 {
		t.Errorf("Expected start shifted to -50, got %d", d.StartPosition())
	}
	if d.ShoulderState() != ShoulderMovingToStart {
		t.Errorf("Expected moving to start, got %v", d.ShoulderState())
	}
	if d.CheckStepBacklog() {
		t.Error("Backlog monitor must not fire while moving to start")
	}
}

func TestMoveToStartRetract(t *testing.T) {
	d, out := setupShoulder(t)
	d.SetStepsPerUnitPitch(100)
	// already at the start: still clears it by one pitch
	d.MoveToStart()
	if d.Position() != 100 {
		t.Fatalf("Expected current 100, got %d", d.Position())
	}
	out.rising, out.dirChanges = 0, 0

	ticks := 0
	for d.ShoulderState() == ShoulderMovingToStart && ticks < 100000 {
		d.Tick(0, true)
		ticks++
	}
	if d.ShoulderState() != ShoulderIndexing {
		t.Fatalf("Expected retract to finish, still %v after %d ticks", d.ShoulderState(), ticks)
	}
	if diff := d.DesiredPosition() - d.Position(); diff > 2 || diff < -2 {
		t.Errorf("Expected to stop within backlash of desired, diff=%d", diff)
	}

	// paced: each step waits out the slowest divider, then spends a tick
	// lowering STEP; no direction change in this direction
	if ticks < out.rising*(20+1) {
		t.Errorf("Retract of %d steps finished in %d ticks, expected pacing", out.rising, ticks)
	}
	if out.dirChanges != 0 {
		t.Errorf("Expected no direction change, got %d", out.dirChanges)
	}
}

// runRampIntervals ticks until the retract ramp clock reaches n intervals.
// The clock only runs while STEP is low.
func runRampIntervals(t *testing.T, d *Drive, n uint32) {
	t.Helper()
	for i := 0; d.shoulder.accelTime < n*(rampInterval+1); i++ {
		if i > 1000000 {
			t.Fatalf("Ramp clock stuck at %d", d.shoulder.accelTime)
		}
		d.Tick(0, true)
	}
}

func TestMoveToStartRamp(t *testing.T) {
	d, _, _ := newTestDrive(t, testParams())
	d.SetStepsPerUnitPitch(1000)
	d.SetCurrentPosition(2500)
	d.SetStart()
	d.SetCurrentPosition(0)
	d.BeginThreadToShoulder(true)
	d.MoveToStart()

	if d.shoulder.speed != 20 {
		t.Fatalf("Expected retract to start at divider 20, got %d", d.shoulder.speed)
	}
	runRampIntervals(t, d, 1)
	if d.shoulder.speed != 19 {
		t.Errorf("Expected divider 19 after one ramp interval far from start, got %d", d.shoulder.speed)
	}
	runRampIntervals(t, d, 20)
	if d.shoulder.speed != 4 {
		t.Errorf("Expected divider to bottom out at 4, got %d", d.shoulder.speed)
	}
}

func TestSetStartOffset(t *testing.T) {
	d, _ := setupShoulder(t)
	d.SetStepsPerUnitPitch(100)
	d.SetStartOffset(0.5)

	// cutting toward positive: the offset moves the frame back
	if d.Position() != -50 || d.StartPosition() != -50 || d.ShoulderPosition() != 50 {
		t.Errorf("Unexpected positions current=%d start=%d shoulder=%d",
			d.Position(), d.StartPosition(), d.ShoulderPosition())
	}
}

func TestIsAtStart(t *testing.T) {
	d, _ := setupShoulder(t)

	testCases := []struct {
		current  int32
		expected bool
	}{
		{-10, true},
		{2, true},
		{3, false},
	}
	for _, tc := range testCases {
		d.SetCurrentPosition(tc.current)
		if got := d.IsAtStart(); got != tc.expected {
			t.Errorf("current %d: expected IsAtStart=%v", tc.current, tc.expected)
		}
	}
}

func TestBeginThreadToShoulderCancel(t *testing.T) {
	d, _ := setupShoulder(t)
	d.SetStepsPerUnitPitch(100)
	d.MoveToStart()

	d.SetDesiredPosition(77)
	d.BeginThreadToShoulder(false)
	if d.ShoulderState() != ShoulderInactive {
		t.Errorf("Expected inactive, got %v", d.ShoulderState())
	}
	if d.Position() != 77 {
		t.Errorf("Expected current snapped to 77, got %d", d.Position())
	}

	// cancelling again only snaps
	d.SetDesiredPosition(80)
	d.BeginThreadToShoulder(false)
	if d.Position() != 80 || d.ShoulderState() != ShoulderInactive {
		t.Errorf("Expected idempotent cancel, got %d %v", d.Position(), d.ShoulderState())
	}

	// a retract left over from the cancelled cycle no longer masks the monitor
	d.SetDesiredPosition(1000)
	if !d.CheckStepBacklog() {
		t.Error("Expected backlog fault after cancel")
	}
}
