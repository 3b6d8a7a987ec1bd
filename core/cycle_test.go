package core

import "testing"

type cycleRig struct {
	t     *testing.T
	drive *Drive
	f     *Follower
	enc   *fakeEncoder
	cycle *ShoulderCycle
}

func newCycleRig(t *testing.T, starts int) *cycleRig {
	t.Helper()
	f, d, enc, _ := newTestFollower(t, 1<<20)
	f.SetFeed(Feed{Numerator: 1, Denominator: 1})
	f.Tick(0, true)
	c, err := NewShoulderCycle(d, starts)
	if err != nil {
		t.Fatalf("NewShoulderCycle failed: %v", err)
	}
	return &cycleRig{t: t, drive: d, f: f, enc: enc, cycle: c}
}

func (r *cycleRig) tick(rpm uint16, forward bool) {
	if r.drive.CheckStepBacklog() {
		r.t.Fatalf("Unexpected backlog fault at current=%d desired=%d", r.drive.Position(), r.drive.DesiredPosition())
	}
	r.f.Tick(rpm, forward)
}

// spin turns the spindle by counts, four ticks per count
func (r *cycleRig) spin(counts int, rpm uint16) {
	forward := counts >= 0
	step := int32(1)
	if !forward {
		counts = -counts
		step = -1
	}
	for i := 0; i < counts; i++ {
		r.enc.advance(step)
		for j := 0; j < 4; j++ {
			r.tick(rpm, forward)
		}
		r.cycle.Poll(rpm)
	}
}

// idle runs stopped-spindle ticks until done returns true
func (r *cycleRig) idle(done func() bool) {
	for i := 0; i < 200000; i++ {
		if done() {
			return
		}
		r.tick(0, true)
		r.cycle.Poll(0)
	}
	r.t.Fatalf("Timed out in phase %v shoulder %v", r.cycle.Phase(), r.drive.ShoulderState())
}

func (r *cycleRig) setup() {
	r.spin(500, 10)
	r.cycle.Confirm()
	if r.cycle.Phase() != CycleSetStart {
		r.t.Fatalf("Expected set-start, got %v", r.cycle.Phase())
	}
	r.spin(-500, 10)
	r.cycle.Confirm()
	if r.cycle.Phase() != CycleReady {
		r.t.Fatalf("Expected ready, got %v", r.cycle.Phase())
	}
}

func (r *cycleRig) cutToShoulder(counts int) {
	r.spin(counts, 100)
	if r.cycle.Phase() != CycleAtShoulder {
		r.t.Fatalf("Expected at-shoulder, got %v", r.cycle.Phase())
	}
	if r.drive.ShoulderState() != ShoulderHolding {
		r.t.Fatalf("Expected holding, got %v", r.drive.ShoulderState())
	}
}

func (r *cycleRig) stopAndRetract() {
	r.cycle.Poll(0)
	if r.cycle.Phase() != CycleStopped {
		r.t.Fatalf("Expected stopped, got %v", r.cycle.Phase())
	}
	r.cycle.Confirm()
	if r.cycle.Phase() != CycleRetracting {
		r.t.Fatalf("Expected retracting, got %v", r.cycle.Phase())
	}
	r.idle(func() bool { return r.cycle.Phase() == CycleReady })
	r.idle(func() bool { return r.drive.ShoulderState() == ShoulderIndexing })
}

func TestShoulderCycleSingleStart(t *testing.T) {
	r := newCycleRig(t, 1)
	r.setup()
	d := r.drive
	span := d.ShoulderPosition() - d.StartPosition()

	r.cutToShoulder(700)
	held := d.Position()
	r.cycle.Poll(0)
	// stopping drops whole pitches only
	if shift := d.Position() - held; shift%100 != 0 || shift == 0 {
		t.Errorf("Expected a whole-pitch resync, got %d", shift)
	}
	r.stopAndRetract()

	if diff := d.DesiredPosition() - d.Position(); diff > 2 || diff < -2 {
		t.Errorf("Expected retract to end at desired, diff %d", diff)
	}
	if got := d.ShoulderPosition() - d.StartPosition(); got != span {
		t.Errorf("Expected shoulder-start span %d preserved, got %d", span, got)
	}
	if shift := d.StartPosition() - d.DesiredPosition(); shift < 0 || shift > 2 {
		t.Errorf("Expected to stop at the start, offset %d", shift)
	}
	if r.cycle.CurrentStart() != 1 {
		t.Errorf("Expected start 1, got %d", r.cycle.CurrentStart())
	}

	// second pass stops at the same shoulder
	r.cutToShoulder(600)
	if !d.IsAtShoulder() {
		t.Errorf("Expected second pass at the shoulder, current=%d shoulder=%d", d.Position(), d.ShoulderPosition())
	}
}

func TestShoulderCycleMultiStart(t *testing.T) {
	r := newCycleRig(t, 2)
	r.setup()
	d := r.drive

	r.cutToShoulder(700)
	r.stopAndRetract()

	if r.cycle.CurrentStart() != 2 {
		t.Errorf("Expected second start, got %d", r.cycle.CurrentStart())
	}
	// half a pitch further from the start than a single-start thread
	if shift := d.StartPosition() - d.DesiredPosition(); shift < 49 || shift > 52 {
		t.Errorf("Expected the start offset by half a pitch, got %d", shift)
	}
}

func TestShoulderCycleCancel(t *testing.T) {
	r := newCycleRig(t, 1)
	r.setup()
	r.spin(100, 100)
	if r.cycle.Phase() != CycleCutting {
		t.Fatalf("Expected cutting, got %v", r.cycle.Phase())
	}
	r.cycle.Cancel()
	if r.cycle.Phase() != CycleCancelled || r.drive.ShoulderState() != ShoulderInactive {
		t.Errorf("Expected cancelled, got %v %v", r.cycle.Phase(), r.drive.ShoulderState())
	}
	if r.drive.Position() != r.drive.DesiredPosition() {
		t.Error("Expected current snapped to desired on cancel")
	}
}

func TestShoulderCycleStarts(t *testing.T) {
	d, _, _ := newTestDrive(t, testParams())
	for _, starts := range []int{0, 10, -1} {
		if _, err := NewShoulderCycle(d, starts); err != ErrInvalidStarts {
			t.Errorf("starts %d: expected ErrInvalidStarts, got %v", starts, err)
		}
	}
	c, err := NewShoulderCycle(d, 9)
	if err != nil || c.Starts() != 9 {
		t.Errorf("Expected 9 starts, got %v", err)
	}
}
