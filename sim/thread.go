package sim

import (
	"errors"
	"fmt"

	"els/core"
)

var ErrCycleStalled = errors.New("thread cycle did not reach the expected phase")

// ThreadCycle scripts repeated thread-to-shoulder passes: the operator jogs
// to the shoulder and back to the start with the spindle, then each pass
// cuts to the shoulder, stops the spindle and retracts.
type ThreadCycle struct {
	RPM         uint16
	Length      uint32 // spindle counts from start to shoulder
	Overrun     int    // ticks the spindle keeps turning at the shoulder
	Starts      int
	Passes      int
	SampleEvery int
	MaxTicks    int // per phase
}

// CycleResult adds the per-pass landing positions to a Result
type CycleResult struct {
	Result
	Shoulder int32   // motor position latched as the shoulder
	Start    int32   // motor position latched as the start
	Landed   []int32 // motor position at the shoulder on each pass
}

// RunThreadCycle plays tc against the machine
func (m *Machine) RunThreadCycle(tc ThreadCycle) (CycleResult, error) {
	var res CycleResult
	cycle, err := core.NewShoulderCycle(m.Drive, tc.Starts)
	if err != nil {
		return res, err
	}

	tick := 0
	step := func() {
		m.Step()
		if tc.SampleEvery > 0 && tick%tc.SampleEvery == 0 {
			res.Samples = append(res.Samples, m.Sample())
		}
		tick++
	}
	until := func(phase string, done func() bool) error {
		for i := 0; i < tc.MaxTicks; i++ {
			if done() {
				return nil
			}
			step()
		}
		return fmt.Errorf("%w: %s", ErrCycleStalled, phase)
	}
	jog := func(forward bool) error {
		m.Spindle.SetSpeed(tc.RPM, forward)
		var moved uint32
		last := m.Spindle.Position()
		wrap := m.Spindle.MaxCount()
		err := until("jog", func() bool {
			pos := m.Spindle.Position()
			delta := (pos + wrap - last) % wrap
			if !forward {
				delta = (last + wrap - pos) % wrap
			}
			moved += delta
			last = pos
			return moved >= tc.Length
		})
		m.Spindle.SetSpeed(0, forward)
		for i := 0; i < 100; i++ {
			step()
		}
		return err
	}
	poll := func(want core.CyclePhase) func() bool {
		return func() bool {
			rpm, _ := m.Spindle.Speed()
			return cycle.Poll(rpm) == want
		}
	}

	if err := jog(true); err != nil {
		return res, err
	}
	cycle.Confirm()
	res.Shoulder = m.Motor.Position

	if err := jog(false); err != nil {
		return res, err
	}
	cycle.Confirm()
	res.Start = m.Motor.Position

	for pass := 0; pass < tc.Passes; pass++ {
		m.Spindle.SetSpeed(tc.RPM, true)
		if err := until("cut", poll(core.CycleAtShoulder)); err != nil {
			return res, err
		}
		for i := 0; i < tc.Overrun; i++ {
			step()
		}
		res.Landed = append(res.Landed, m.Motor.Position)

		m.Spindle.SetSpeed(0, true)
		if err := until("stop", poll(core.CycleStopped)); err != nil {
			return res, err
		}
		cycle.Confirm()
		if err := until("retract", poll(core.CycleReady)); err != nil {
			return res, err
		}
		if err := until("settle", func() bool {
			return m.Drive.ShoulderState() != core.ShoulderMovingToStart
		}); err != nil {
			return res, err
		}
	}
	cycle.Cancel()

	res.Faults = m.Faults
	res.Pulses = m.Motor.Pulses
	res.Motor = m.Motor.Position
	res.Violations = m.Motor.Violations
	res.Events = m.Drive.Events()
	return res, nil
}
