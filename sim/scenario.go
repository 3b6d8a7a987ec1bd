package sim

import (
	"els/core"
)

// Scenario scripts a simulation run. Tick offsets below zero never fire.
type Scenario struct {
	Ticks       int
	RPM         uint16
	Forward     bool
	LimitAt     int // trip the limit switch
	ReleaseAt   int // release it
	SampleEvery int // keep every nth sample, 0 keeps none
	StatusEvery int // report every nth tick, 0 never
}

// Result summarises a scenario run
type Result struct {
	Samples    []Sample
	Faults     int
	Pulses     int
	Motor      int32
	Violations []string
	Events     []core.Event
}

// RunScenario plays sc. report, if set, receives a snapshot every
// StatusEvery ticks; an error from it stops the run.
func (m *Machine) RunScenario(sc Scenario, report func(core.Snapshot) error) (Result, error) {
	m.Spindle.SetSpeed(sc.RPM, sc.Forward)

	var res Result
	for i := 0; i < sc.Ticks; i++ {
		if i == sc.LimitAt {
			m.Limit.Trip()
		}
		if i == sc.ReleaseAt {
			m.Limit.Release()
		}
		m.Step()

		if sc.SampleEvery > 0 && i%sc.SampleEvery == 0 {
			res.Samples = append(res.Samples, m.Sample())
		}
		if report != nil && sc.StatusEvery > 0 && i%sc.StatusEvery == 0 {
			if err := report(m.Drive.Snapshot()); err != nil {
				return res, err
			}
		}
	}

	res.Faults = m.Faults
	res.Pulses = m.Motor.Pulses
	res.Motor = m.Motor.Position
	res.Violations = m.Motor.Violations
	res.Events = m.Drive.Events()
	return res, nil
}
