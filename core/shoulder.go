package core

// ShoulderState describes the thread-to-shoulder controller
type ShoulderState uint8

const (
	ShoulderInactive      ShoulderState = iota // cycle not running
	ShoulderIndexing                           // following the spindle toward the shoulder
	ShoulderHolding                            // desired is past the shoulder, steps held
	ShoulderMovingToStart                      // paced retract to the start position
)

func (s ShoulderState) String() string {
	switch s {
	case ShoulderInactive:
		return "inactive"
	case ShoulderIndexing:
		return "indexing"
	case ShoulderHolding:
		return "holding"
	case ShoulderMovingToStart:
		return "moving-to-start"
	default:
		return "unknown"
	}
}

// rampInterval masks the tick counter; the retract speed changes once per
// 512 ticks
const rampInterval = 0x1ff

type shoulderControl struct {
	active        bool
	holding       bool
	movingToStart bool

	position  int32 // shoulder, in current-position coordinates
	start     int32 // start, in current-position coordinates
	direction int32 // sign gives the cutting direction

	speed     uint32 // current tick divider during retract
	delay     uint32
	accelTime uint32
}

// shoulderHold runs the shoulder controller and returns true when the pulse
// generator must not run this tick.
func (d *Drive) shoulderHold(diff int32) bool {
	s := &d.shoulder
	if !s.active || d.pulse.StepAsserted() {
		return false
	}

	if s.movingToStart {
		distance := abs32(diff)
		s.accelTime++
		if s.accelTime&rampInterval == 0 {
			slowest := d.params.RetractSpeed * d.params.RetractRampFactor
			if distance < d.params.StepsPerRevolution/3 {
				if s.speed < slowest {
					s.speed++
				}
			} else if s.speed > d.params.RetractSpeed {
				s.speed--
			}
		}

		s.delay++
		if s.delay <= s.speed {
			return true
		}
		s.delay = 0
		s.movingToStart = distance > d.params.Backlash
		if !s.movingToStart {
			d.record(EvtRetractDone, d.current.Load(), s.start)
		}
		return false
	}

	past := d.desired.Load() - s.position
	if (s.direction >= 0 && past > 0) || (s.direction < 0 && past < 0) {
		if !s.holding {
			d.record(EvtShoulderHold, d.desired.Load(), s.position)
		}
		s.holding = true
		return true
	}
	if s.holding {
		d.record(EvtShoulderRelease, d.desired.Load(), s.position)
	}
	s.holding = false
	return false
}

// SetShoulder latches the current position as the shoulder
func (d *Drive) SetShoulder() {
	state := disableInterrupts()
	d.shoulder.position = d.current.Load()
	restoreInterrupts(state)
}

// SetStart latches the current position as the start
func (d *Drive) SetStart() {
	state := disableInterrupts()
	d.shoulder.start = d.current.Load()
	restoreInterrupts(state)
}

// ShoulderPosition returns the shoulder in current-position coordinates
func (d *Drive) ShoulderPosition() int32 {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return d.shoulder.position
}

// StartPosition returns the start in current-position coordinates
func (d *Drive) StartPosition() int32 {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return d.shoulder.start
}

// BeginThreadToShoulder starts or cancels the shoulder cycle. Starting
// records the cutting direction from start toward shoulder. Cancelling snaps
// current to desired and drops any retract in progress.
func (d *Drive) BeginThreadToShoulder(start bool) {
	state := disableInterrupts()
	s := &d.shoulder
	s.active = start
	if start {
		s.direction = s.position - s.start
	} else {
		d.current.Store(d.desired.Load())
		s.movingToStart = false
	}
	s.holding = false
	restoreInterrupts(state)
}

// ResetToShoulder drops the whole spindle revolutions between current and
// desired, leaving a residual smaller than one pitch.
func (d *Drive) ResetToShoulder() {
	state := disableInterrupts()
	d.resetToShoulder()
	restoreInterrupts(state)
}

func (d *Drive) resetToShoulder() {
	pitch := d.stepsPerUnitPitch
	if pitch <= 0 {
		return
	}
	diff := float32(d.desired.Load() - d.current.Load())
	whole := int32(diff / pitch)
	d.incrementCurrent(int32(float32(whole) * pitch))
}

// MoveToStart shifts the frame by a whole number of pitches past the start
// and begins the paced retract toward it.
func (d *Drive) MoveToStart() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	s := &d.shoulder
	pitch := int32(d.stepsPerUnitPitch)
	if pitch <= 0 {
		return
	}
	diff := d.desired.Load() - s.start
	whole := diff / pitch
	if diff < 0 {
		whole--
	} else {
		whole++
	}
	d.incrementCurrent(whole * pitch)

	s.speed = d.params.RetractSpeed * d.params.RetractRampFactor
	s.delay = 0
	s.accelTime = 0
	s.movingToStart = true
}

// SetStartOffset advances the start by a fraction of a pitch, used to index
// the next start of a multi-start thread.
func (d *Drive) SetStartOffset(fraction float32) {
	state := disableInterrupts()
	offset := int32(fraction * d.stepsPerUnitPitch)
	if d.shoulder.direction > 0 {
		offset = -offset
	}
	d.incrementCurrent(offset)
	restoreInterrupts(state)
}

// IsAtShoulder returns true when current is within backlash of the shoulder
func (d *Drive) IsAtShoulder() bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return abs32(d.current.Load()-d.shoulder.position) <= d.params.Backlash
}

// IsAtStart returns true when current has reached the start, allowing
// backlash of overshoot in the cutting direction.
func (d *Drive) IsAtStart() bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	diff := d.current.Load() - d.shoulder.start
	if d.shoulder.direction < 0 {
		return diff >= -d.params.Backlash
	}
	return diff <= d.params.Backlash
}

// DistanceToShoulder returns desired minus the shoulder
func (d *Drive) DistanceToShoulder() int32 {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return d.desired.Load() - d.shoulder.position
}

// ShoulderState reports the shoulder controller state
func (d *Drive) ShoulderState() ShoulderState {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return d.shoulderState()
}

func (d *Drive) shoulderState() ShoulderState {
	s := &d.shoulder
	switch {
	case !s.active:
		return ShoulderInactive
	case s.movingToStart:
		return ShoulderMovingToStart
	case s.holding:
		return ShoulderHolding
	default:
		return ShoulderIndexing
	}
}
