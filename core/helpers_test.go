package core

import "testing"

// recordingOutputs captures line levels and checks pulse shape
type recordingOutputs struct {
	step, dir, enable bool
	rising, falling   int
	dirChanges        int
	violations        []string
}

func (r *recordingOutputs) SetStep(on bool) {
	if on == r.step {
		r.violations = append(r.violations, "step set to its current level")
	}
	if on {
		r.rising++
	} else {
		r.falling++
	}
	r.step = on
}

func (r *recordingOutputs) SetDirection(on bool) {
	if r.step {
		r.violations = append(r.violations, "direction changed while step high")
	}
	if on != r.dir {
		r.dirChanges++
	}
	r.dir = on
}

func (r *recordingOutputs) SetEnable(on bool) {
	r.enable = on
}

type fakeLimit struct {
	released bool
}

func (f *fakeLimit) Released() bool { return f.released }

type fakeIndicator struct {
	on bool
}

func (f *fakeIndicator) SetLimitIndicator(on bool) { f.on = on }

func testParams() Params {
	return Params{
		Backlash:           2,
		MaxBufferedSteps:   100,
		StepsPerRevolution: 1600,
		RetractSpeed:       4,
		RetractRampFactor:  5,
	}
}

// newTestDrive returns an enabled drive with a released limit switch
func newTestDrive(t *testing.T, params Params) (*Drive, *recordingOutputs, *fakeLimit) {
	t.Helper()
	out := &recordingOutputs{}
	limit := &fakeLimit{released: true}
	d, err := NewDrive(params, out, limit)
	if err != nil {
		t.Fatalf("NewDrive failed: %v", err)
	}
	// construction idles every line
	out.rising, out.falling, out.violations = 0, 0, nil
	d.SetEnabled(true)
	return d, out, limit
}

func runTicks(d *Drive, n int, rpm uint16, forward bool) {
	for i := 0; i < n; i++ {
		d.Tick(rpm, forward)
	}
}
