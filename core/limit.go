package core

import "sync/atomic"

// LimitState is the recovery step of the limit-switch arbiter
type LimitState uint8

const (
	LimitIdle           LimitState = iota // limit just reported
	LimitManualApproach                   // thread mode, spindle stopped at the switch
	LimitAwaitSpindle                     // thread mode, waiting for the spindle to stop or reverse
	LimitCloseGap                         // thread mode, waiting for desired to come back to current
	LimitAwaitReversal                    // thread mode, pulsing, waiting for the next reversal
	LimitFeedHold                         // feed mode, parked until the switch releases
)

func (s LimitState) String() string {
	switch s {
	case LimitIdle:
		return "idle"
	case LimitManualApproach:
		return "manual-approach"
	case LimitAwaitSpindle:
		return "await-spindle"
	case LimitCloseGap:
		return "close-gap"
	case LimitAwaitReversal:
		return "await-reversal"
	case LimitFeedHold:
		return "feed-hold"
	default:
		return "unknown"
	}
}

type limitArbiter struct {
	// pending is set by the edge interrupt and cleared only by the tick
	pending atomic.Bool

	threadMode       bool
	state            LimitState
	prevForward      bool
	prevDiffPositive bool
}

// LimitReached reports a limit-switch edge. Safe to call from an interrupt.
func (d *Drive) LimitReached() {
	d.arbiter.pending.Store(true)
}

// LimitPending returns true until the arbiter has finished recovery
func (d *Drive) LimitPending() bool {
	return d.arbiter.pending.Load()
}

// SetThreadMode selects the thread-mode recovery sequence instead of the
// feed-mode hold.
func (d *Drive) SetThreadMode(on bool) {
	state := disableInterrupts()
	d.arbiter.threadMode = on
	restoreInterrupts(state)
}

// ThreadMode returns whether thread-mode recovery is selected
func (d *Drive) ThreadMode() bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return d.arbiter.threadMode
}

// LimitState returns the arbiter recovery step
func (d *Drive) LimitState() LimitState {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return d.arbiter.state
}

func (d *Drive) setLimitState(next LimitState) {
	if d.arbiter.state == next {
		return
	}
	d.record(EvtLimitState, int32(d.arbiter.state), int32(next))
	d.arbiter.state = next
}

// clearLimit finishes recovery. The state returns to idle so the next
// reported edge starts from the beginning.
func (d *Drive) clearLimit() {
	d.arbiter.pending.Store(false)
	d.setLimitState(LimitIdle)
}

// limitHold runs the limit-switch arbiter and returns true when the pulse
// generator must not run this tick.
func (d *Drive) limitHold(diff int32, rpm uint16, forward bool) bool {
	if !d.arbiter.pending.Load() {
		return false
	}
	if d.led != nil {
		d.led.SetLimitIndicator(true)
	}

	if d.pulse.StepAsserted() || !d.enabled.Load() {
		if d.limit.Released() {
			d.clearLimit()
		}
		return false
	}

	if d.arbiter.threadMode {
		return d.threadLimit(diff, rpm, forward)
	}
	return d.feedLimit()
}

func (d *Drive) threadLimit(diff int32, rpm uint16, forward bool) bool {
	a := &d.arbiter
	switch a.state {
	case LimitIdle:
		if rpm == 0 {
			d.setLimitState(LimitManualApproach)
		} else {
			a.prevForward = forward
			d.setLimitState(LimitAwaitSpindle)
		}

	case LimitManualApproach:
		if rpm != 0 {
			d.setLimitState(LimitIdle)
		} else if d.limit.Released() {
			d.clearLimit()
			return false
		}

	case LimitAwaitSpindle:
		if rpm == 0 || forward != a.prevForward {
			a.prevDiffPositive = diff > 0
			d.resetToShoulder()
			d.setLimitState(LimitCloseGap)
		}

	case LimitCloseGap:
		if diff == 0 || (diff > 0) != a.prevDiffPositive {
			a.prevForward = forward
			d.setLimitState(LimitAwaitReversal)
			return false
		}

	case LimitAwaitReversal:
		if forward != a.prevForward {
			d.clearLimit()
		}
		return false

	default:
		// mode changed while a feed hold was pending
		d.setLimitState(LimitIdle)
	}
	return true
}

func (d *Drive) feedLimit() bool {
	switch d.arbiter.state {
	case LimitIdle:
		d.setLimitState(LimitFeedHold)
		fallthrough

	case LimitFeedHold:
		d.current.Store(d.desired.Load())
		if d.limit.Released() {
			d.clearLimit()
			return false
		}

	default:
		d.setLimitState(LimitIdle)
	}
	return true
}
