package core

// PulseState is the position of the pulse generator in its step cycle
type PulseState uint8

const (
	PulseIdle        PulseState = iota // step low, direction low
	PulseDirSet                        // step low, direction high
	PulseStepReverse                   // step high, direction low
	PulseStepForward                   // step high, direction high
)

// StepAsserted returns true while the STEP line is high
func (s PulseState) StepAsserted() bool {
	return s == PulseStepReverse || s == PulseStepForward
}

func (s PulseState) String() string {
	switch s {
	case PulseIdle:
		return "idle"
	case PulseDirSet:
		return "dir-set"
	case PulseStepReverse:
		return "step-reverse"
	case PulseStepForward:
		return "step-forward"
	default:
		return "unknown"
	}
}

// advancePulse makes at most one line transition toward desired.
// A step is counted on its falling edge. Changing direction needs an error
// of at least one backlash in the other direction.
func (d *Drive) advancePulse(diff int32) {
	if !d.enabled.Load() {
		// current tracks desired while disabled
		d.current.Store(d.desired.Load())
		return
	}

	backlash := d.params.Backlash
	switch d.pulse {
	case PulseIdle:
		if diff <= -backlash {
			d.out.SetStep(true)
			d.pulse = PulseStepReverse
		} else if diff >= backlash {
			d.out.SetDirection(true)
			d.pulse = PulseDirSet
		}

	case PulseDirSet:
		if diff >= backlash {
			d.out.SetStep(true)
			d.pulse = PulseStepForward
		} else if diff <= -backlash {
			d.out.SetDirection(false)
			d.pulse = PulseIdle
		}

	case PulseStepReverse:
		d.out.SetStep(false)
		d.current.Add(-1)
		d.pulse = PulseIdle

	case PulseStepForward:
		d.out.SetStep(false)
		d.current.Add(1)
		d.pulse = PulseDirSet
	}
}
