package core

import "strconv"

// CheckStepBacklog disables the drive when desired and current have drifted
// further apart than MaxBufferedSteps. It is skipped while the shoulder
// controller or the limit arbiter legitimately hold steps back. Returns true
// when the drive was disabled; the fault stays latched until SetEnabled(true).
func (d *Drive) CheckStepBacklog() bool {
	state := disableInterrupts()
	backlog, tripped := d.checkBacklog()
	restoreInterrupts(state)

	if tripped && debugEnabled {
		DebugPrintln("backlog fault: " + strconv.Itoa(int(backlog)) +
			" steps, limit " + strconv.Itoa(int(d.params.MaxBufferedSteps)))
	}
	return tripped
}

func (d *Drive) checkBacklog() (int32, bool) {
	s := &d.shoulder
	if s.holding || s.movingToStart || d.arbiter.pending.Load() {
		return 0, false
	}
	backlog := abs32(d.desired.Load() - d.current.Load())
	if backlog <= d.params.MaxBufferedSteps {
		return backlog, false
	}
	d.setEnabled(false)
	d.fault.Store(true)
	d.record(EvtBacklogFault, backlog, d.params.MaxBufferedSteps)
	return backlog, true
}
