package core

import "testing"

func TestParamsValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Params)
		err    error
	}{
		{"defaults", func(p *Params) {}, nil},
		{"zero backlash", func(p *Params) { p.Backlash = 0 }, ErrInvalidBacklash},
		{"backlash equals buffer", func(p *Params) { p.Backlash = p.MaxBufferedSteps }, ErrBacklashExceedsBuffer},
		{"no steps per revolution", func(p *Params) { p.StepsPerRevolution = 0 }, ErrInvalidStepsPerRev},
		{"zero retract speed", func(p *Params) { p.RetractSpeed = 0 }, ErrInvalidRetractSpeed},
		{"zero ramp factor", func(p *Params) { p.RetractRampFactor = 0 }, ErrInvalidRetractRampFactor},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.modify(&p)
			if err := p.Validate(); err != tc.err {
				t.Errorf("Expected %v, got %v", tc.err, err)
			}
		})
	}
}
