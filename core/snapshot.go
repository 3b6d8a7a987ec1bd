package core

import "els/protocol"

// Snapshot is a consistent copy of the drive status
type Snapshot struct {
	Tick          uint32
	Current       int32
	Desired       int32
	Shoulder      int32
	Start         int32
	Enabled       bool
	Fault         bool
	Alarm         bool
	ThreadMode    bool
	LimitPending  bool
	LimitState    LimitState
	ShoulderState ShoulderState
	PulseState    PulseState
}

// Backlog returns desired minus current
func (s Snapshot) Backlog() int32 {
	return s.Desired - s.Current
}

// Snapshot copies the drive status inside one critical section
func (d *Drive) Snapshot() Snapshot {
	alarm := d.IsAlarm()

	state := disableInterrupts()
	defer restoreInterrupts(state)
	return Snapshot{
		Tick:          d.ticks,
		Current:       d.current.Load(),
		Desired:       d.desired.Load(),
		Shoulder:      d.shoulder.position,
		Start:         d.shoulder.start,
		Enabled:       d.enabled.Load(),
		Fault:         d.fault.Load(),
		Alarm:         alarm,
		ThreadMode:    d.arbiter.threadMode,
		LimitPending:  d.arbiter.pending.Load(),
		LimitState:    d.arbiter.state,
		ShoulderState: d.shoulderState(),
		PulseState:    d.pulse,
	}
}

// Status converts the snapshot into its telemetry form
func (s Snapshot) Status() protocol.Status {
	var flags uint32
	if s.Enabled {
		flags |= protocol.StatusEnabled
	}
	if s.Fault {
		flags |= protocol.StatusFault
	}
	if s.Alarm {
		flags |= protocol.StatusAlarm
	}
	if s.ThreadMode {
		flags |= protocol.StatusThreadMode
	}
	if s.LimitPending {
		flags |= protocol.StatusLimitPending
	}
	return protocol.Status{
		Tick:          s.Tick,
		Current:       s.Current,
		Desired:       s.Desired,
		Shoulder:      s.Shoulder,
		Start:         s.Start,
		Flags:         flags,
		LimitState:    uint8(s.LimitState),
		ShoulderState: uint8(s.ShoulderState),
		PulseState:    uint8(s.PulseState),
	}
}

// EncodeStatus writes a status message for the snapshot
func EncodeStatus(out protocol.OutputBuffer, s Snapshot) {
	protocol.EncodeStatus(out, s.Status())
}
