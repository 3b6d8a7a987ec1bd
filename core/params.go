package core

import "errors"

var (
	ErrInvalidBacklash          = errors.New("backlash must be at least 1 step")
	ErrBacklashExceedsBuffer    = errors.New("backlash must be smaller than max buffered steps")
	ErrInvalidStepsPerRev       = errors.New("steps per revolution must be positive")
	ErrInvalidRetractSpeed      = errors.New("retract speed must be positive")
	ErrInvalidRetractRampFactor = errors.New("retract ramp factor must be at least 1")
	ErrNilOutputs               = errors.New("stepper outputs not configured")
	ErrNilLimit                 = errors.New("limit switch input not configured")
)

// Params holds the fixed tuning of a drive
type Params struct {
	// Backlash is the dead band in steps; also the direction-reversal hysteresis
	Backlash int32

	// MaxBufferedSteps is the largest |desired-current| tolerated before the
	// backlog monitor disables the drive
	MaxBufferedSteps int32

	// StepsPerRevolution is microsteps times motor resolution
	StepsPerRevolution int32

	// RetractSpeed is the smallest tick divider used while moving to start
	RetractSpeed uint32

	// RetractRampFactor scales RetractSpeed to the slowest divider, used at
	// the start and end of a retract
	RetractRampFactor uint32
}

// DefaultParams returns the stock tuning: 8 microsteps on a 200 step motor
func DefaultParams() Params {
	return Params{
		Backlash:           2,
		MaxBufferedSteps:   100,
		StepsPerRevolution: 8 * 200,
		RetractSpeed:       4,
		RetractRampFactor:  5,
	}
}

// Validate checks the parameters for consistency
func (p Params) Validate() error {
	switch {
	case p.Backlash < 1:
		return ErrInvalidBacklash
	case p.Backlash >= p.MaxBufferedSteps:
		return ErrBacklashExceedsBuffer
	case p.StepsPerRevolution <= 0:
		return ErrInvalidStepsPerRev
	case p.RetractSpeed == 0:
		return ErrInvalidRetractSpeed
	case p.RetractRampFactor < 1:
		return ErrInvalidRetractRampFactor
	}
	return nil
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
