// Package sim runs the motion core against a simulated spindle, limit switch
// and stepper, one tick at a time.
package sim

import (
	"els/config"
	"els/core"
	"els/protocol"
)

// Sample is one observation of the simulated machine
type Sample struct {
	Tick    uint64
	Desired int32
	Current int32
	Motor   int32
	Spindle uint32
}

// Machine is a simulated lathe with an electronic leadscrew
type Machine struct {
	Config   *config.Machine
	Drive    *core.Drive
	Follower *core.Follower
	Spindle  *Spindle
	Limit    *LimitSwitch
	Motor    *Motor

	Faults int
	ticks  uint64
}

// New builds an enabled machine following the spindle at the configured feed
func New(cfg *config.Machine) (*Machine, error) {
	motor := &Motor{}
	limit := &LimitSwitch{}
	drive, err := core.NewDrive(cfg.Params(), motor, limit)
	if err != nil {
		return nil, err
	}
	limit.drive = drive
	motor.Violations = nil

	spindle := NewSpindle(cfg.EncoderResolution, cfg.EncoderMaxCount, cfg.CycleUS)
	follower := core.NewFollower(drive, spindle, cfg.EncoderResolution)
	follower.SetFeed(cfg.CoreFeed())
	follower.SetReverse(cfg.Feed.Reverse)

	drive.SetThreadMode(cfg.ThreadMode)
	drive.SetEnabled(true)

	return &Machine{
		Config:   cfg,
		Drive:    drive,
		Follower: follower,
		Spindle:  spindle,
		Limit:    limit,
		Motor:    motor,
	}, nil
}

// Ticks returns the number of ticks run
func (m *Machine) Ticks() uint64 {
	return m.ticks
}

// Step runs one tick: the spindle turns, the backlog monitor runs, then the
// follower and drive
func (m *Machine) Step() {
	m.Spindle.Advance()
	if m.Drive.CheckStepBacklog() {
		m.Faults++
	}
	rpm, forward := m.Spindle.Speed()
	m.Follower.Tick(rpm, forward)
	m.ticks++
}

// Run steps the machine n times. observe, if set, sees every tick.
func (m *Machine) Run(n int, observe func(Sample)) {
	for i := 0; i < n; i++ {
		m.Step()
		if observe != nil {
			observe(m.Sample())
		}
	}
}

// RunUntil steps until done returns true or limit ticks have run. Returns
// whether done was reached.
func (m *Machine) RunUntil(limit int, done func() bool) bool {
	for i := 0; i < limit; i++ {
		if done() {
			return true
		}
		m.Step()
	}
	return done()
}

// Sample observes the machine now
func (m *Machine) Sample() Sample {
	return Sample{
		Tick:    m.ticks,
		Desired: m.Drive.DesiredPosition(),
		Current: m.Drive.Position(),
		Motor:   m.Motor.Position,
		Spindle: m.Spindle.Position(),
	}
}

// EncodeStatus writes a framed status report
func (m *Machine) EncodeStatus(framer *protocol.Framer) error {
	snap := m.Drive.Snapshot()
	return framer.EncodeFrame(func(out protocol.OutputBuffer) {
		core.EncodeStatus(out, snap)
	})
}
