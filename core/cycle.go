package core

import "errors"

// MaxStarts is the largest number of starts a multi-start thread may have
const MaxStarts = 9

var ErrInvalidStarts = errors.New("thread starts must be between 1 and 9")

// CyclePhase is the operator-facing step of a thread-to-shoulder cycle
type CyclePhase uint8

const (
	CycleSetShoulder CyclePhase = iota // jog to the shoulder, then confirm
	CycleSetStart                      // jog to the start, then confirm
	CycleReady                         // waiting for the spindle to turn
	CycleCutting                       // indexing toward the shoulder
	CycleAtShoulder                    // waiting for the spindle to stop
	CycleStopped                       // stopped at the shoulder, confirm to retract
	CycleRetracting                    // paced move back to the start
	CycleCancelled
)

func (p CyclePhase) String() string {
	switch p {
	case CycleSetShoulder:
		return "set-shoulder"
	case CycleSetStart:
		return "set-start"
	case CycleReady:
		return "ready"
	case CycleCutting:
		return "cutting"
	case CycleAtShoulder:
		return "at-shoulder"
	case CycleStopped:
		return "stopped"
	case CycleRetracting:
		return "retracting"
	case CycleCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ShoulderCycle sequences repeated thread-to-shoulder passes, indexing the
// start between passes for multi-start threads. It runs in the polling
// loop, never in the tick handler.
type ShoulderCycle struct {
	drive  *Drive
	starts int
	start  int
	phase  CyclePhase
}

// NewShoulderCycle creates a cycle for a thread with the given number of starts
func NewShoulderCycle(d *Drive, starts int) (*ShoulderCycle, error) {
	if starts < 1 || starts > MaxStarts {
		return nil, ErrInvalidStarts
	}
	return &ShoulderCycle{drive: d, starts: starts}, nil
}

// Phase returns the current phase
func (c *ShoulderCycle) Phase() CyclePhase {
	return c.phase
}

// Starts returns the number of thread starts
func (c *ShoulderCycle) Starts() int {
	return c.starts
}

// CurrentStart returns the start being cut, counting from 1
func (c *ShoulderCycle) CurrentStart() int {
	return c.start + 1
}

// Confirm is the operator's acknowledgement in the phases that wait for one
func (c *ShoulderCycle) Confirm() {
	switch c.phase {
	case CycleSetShoulder:
		c.drive.SetShoulder()
		c.phase = CycleSetStart
	case CycleSetStart:
		c.drive.SetStart()
		c.drive.BeginThreadToShoulder(true)
		c.phase = CycleReady
	case CycleStopped:
		c.drive.MoveToStart()
		c.phase = CycleRetracting
	}
}

// Cancel aborts the cycle
func (c *ShoulderCycle) Cancel() {
	if c.phase == CycleCancelled {
		return
	}
	c.drive.BeginThreadToShoulder(false)
	c.phase = CycleCancelled
}

// Poll advances the phases that wait on the machine
func (c *ShoulderCycle) Poll(rpm uint16) CyclePhase {
	switch c.phase {
	case CycleReady:
		if rpm != 0 {
			c.phase = CycleCutting
		}
	case CycleCutting:
		if c.drive.IsAtShoulder() {
			c.phase = CycleAtShoulder
		}
	case CycleAtShoulder:
		if rpm == 0 {
			c.drive.ResetToShoulder()
			c.start++
			if c.start >= c.starts {
				c.start = 0
			}
			if c.starts > 1 {
				c.drive.SetStartOffset(1 / float32(c.starts))
			}
			c.phase = CycleStopped
		}
	case CycleStopped, CycleRetracting:
		// the operator may also reverse back to the start by hand
		if c.drive.IsAtStart() {
			c.phase = CycleReady
		}
	}
	return c.phase
}
