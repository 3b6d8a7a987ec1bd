package sim

import (
	"sync/atomic"

	"els/core"
)

// LimitSwitch is a simulated limit switch wired to a drive's edge input
type LimitSwitch struct {
	tripped atomic.Bool
	drive   *core.Drive
}

// Released implements core.LimitInput
func (l *LimitSwitch) Released() bool {
	return !l.tripped.Load()
}

// Trip closes the switch and raises the edge
func (l *LimitSwitch) Trip() {
	l.tripped.Store(true)
	if l.drive != nil {
		l.drive.LimitReached()
	}
}

// Release opens the switch
func (l *LimitSwitch) Release() {
	l.tripped.Store(false)
}

// Motor records the stepper driver inputs and integrates the pulses into a
// physical shaft position. It implements core.Outputs.
type Motor struct {
	step, dir, enable bool

	Position   int32 // steps actually taken
	Pulses     int
	Violations []string
}

func (m *Motor) SetStep(on bool) {
	if on == m.step {
		m.Violations = append(m.Violations, "step line set to its current level")
		return
	}
	m.step = on
	if on {
		return
	}
	// the driver acts on the trailing edge
	m.Pulses++
	if !m.enable {
		return
	}
	if m.dir {
		m.Position++
	} else {
		m.Position--
	}
}

func (m *Motor) SetDirection(on bool) {
	if m.step {
		m.Violations = append(m.Violations, "direction changed during a step pulse")
	}
	m.dir = on
}

func (m *Motor) SetEnable(on bool) {
	m.enable = on
}

// Enabled returns the enable line level
func (m *Motor) Enabled() bool {
	return m.enable
}
