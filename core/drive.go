package core

import "sync/atomic"

// Drive is the motion core of one stepper axis. Tick is called from the
// periodic timer interrupt; LimitReached from the limit-switch edge
// interrupt; everything else from the polling loop.
type Drive struct {
	params Params
	out    Outputs
	limit  LimitInput
	alarm  AlarmInput
	led    Indicator

	// current and desired are read by the polling loop without entering the
	// critical section
	current atomic.Int32
	desired atomic.Int32
	enabled atomic.Bool
	fault   atomic.Bool

	ticks             uint32
	pulse             PulseState
	stepsPerUnitPitch float32

	shoulder shoulderControl
	arbiter  limitArbiter
	events   eventRing
}

// Option configures optional collaborators of a Drive
type Option func(*Drive)

// WithAlarm attaches the stepper driver alarm line
func WithAlarm(alarm AlarmInput) Option {
	return func(d *Drive) { d.alarm = alarm }
}

// WithIndicator attaches the limit LED
func WithIndicator(led Indicator) Option {
	return func(d *Drive) { d.led = led }
}

// NewDrive creates a drive. The drive starts disabled with all lines idle.
func NewDrive(params Params, out Outputs, limit LimitInput, opts ...Option) (*Drive, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ErrNilOutputs
	}
	if limit == nil {
		return nil, ErrNilLimit
	}
	d := &Drive{
		params: params,
		out:    out,
		limit:  limit,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.out.SetStep(false)
	d.out.SetDirection(false)
	d.out.SetEnable(false)
	if d.led != nil {
		d.led.SetLimitIndicator(false)
	}
	return d, nil
}

// Params returns the drive tuning
func (d *Drive) Params() Params {
	return d.params
}

// Tick runs one control cycle: shoulder controller, limit arbiter, then the
// pulse generator. rpm and forward describe the spindle.
func (d *Drive) Tick(rpm uint16, forward bool) {
	state := disableInterrupts()
	d.tick(rpm, forward)
	restoreInterrupts(state)
}

func (d *Drive) tick(rpm uint16, forward bool) {
	d.ticks++
	diff := d.desired.Load() - d.current.Load()

	if d.shoulderHold(diff) {
		return
	}
	if d.limitHold(diff, rpm, forward) {
		return
	}
	if d.led != nil && d.limit.Released() {
		d.led.SetLimitIndicator(false)
	}
	d.advancePulse(diff)
}

// SetDesiredPosition sets the commanded position in steps
func (d *Drive) SetDesiredPosition(steps int32) {
	d.desired.Store(steps)
}

// DesiredPosition returns the commanded position
func (d *Drive) DesiredPosition() int32 {
	return d.desired.Load()
}

// SetCurrentPosition overwrites the believed motor position
func (d *Drive) SetCurrentPosition(steps int32) {
	d.current.Store(steps)
}

// Position returns the believed motor position
func (d *Drive) Position() int32 {
	return d.current.Load()
}

// IncrementCurrentPosition shifts the coordinate frame: current, start and
// shoulder move together so their relative geometry is preserved.
func (d *Drive) IncrementCurrentPosition(steps int32) {
	state := disableInterrupts()
	d.incrementCurrent(steps)
	restoreInterrupts(state)
}

func (d *Drive) incrementCurrent(steps int32) {
	d.current.Add(steps)
	d.shoulder.start += steps
	d.shoulder.position += steps
}

// SetEnabled drives the enable line. Enabling clears a latched backlog fault.
func (d *Drive) SetEnabled(on bool) {
	state := disableInterrupts()
	d.setEnabled(on)
	if on {
		d.fault.Store(false)
	}
	restoreInterrupts(state)
}

func (d *Drive) setEnabled(on bool) {
	d.enabled.Store(on)
	d.out.SetEnable(on)
}

// Enabled returns whether the drive is enabled
func (d *Drive) Enabled() bool {
	return d.enabled.Load()
}

// Fault returns true after the backlog monitor disabled the drive
func (d *Drive) Fault() bool {
	return d.fault.Load()
}

// IsAlarm reads the stepper driver alarm line
func (d *Drive) IsAlarm() bool {
	return d.alarm != nil && d.alarm.Alarm()
}

// SetStepsPerUnitPitch sets the steps per spindle revolution at the current
// feed, used to realign whole pitches.
func (d *Drive) SetStepsPerUnitPitch(steps float32) {
	state := disableInterrupts()
	d.stepsPerUnitPitch = steps
	restoreInterrupts(state)
}

// PulseState returns the pulse generator state
func (d *Drive) PulseState() PulseState {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return d.pulse
}

// Events returns the recorded events oldest first
func (d *Drive) Events() []Event {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return d.events.snapshot()
}

// ClearEvents empties the event ring
func (d *Drive) ClearEvents() {
	state := disableInterrupts()
	d.events.clear()
	restoreInterrupts(state)
}

func (d *Drive) record(eventType uint8, value1, value2 int32) {
	d.events.record(eventType, d.ticks, value1, value2)
}
