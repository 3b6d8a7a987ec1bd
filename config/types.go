package config

// PinConfig assigns GPIO numbers and polarity. Optional pins are nil when
// not wired.
type PinConfig struct {
	Step            uint32  `json:"step" mapstructure:"step"`
	Direction       uint32  `json:"direction" mapstructure:"direction"`
	Enable          uint32  `json:"enable" mapstructure:"enable"`
	Limit           uint32  `json:"limit" mapstructure:"limit"`
	Alarm           *uint32 `json:"alarm,omitempty" mapstructure:"alarm"`
	LimitLED        *uint32 `json:"limit_led,omitempty" mapstructure:"limit_led"`
	EncoderA        uint32  `json:"encoder_a" mapstructure:"encoder_a"`
	EncoderB        uint32  `json:"encoder_b" mapstructure:"encoder_b"`
	InvertStep      bool    `json:"invert_step" mapstructure:"invert_step"`
	InvertDirection bool    `json:"invert_direction" mapstructure:"invert_direction"`
	InvertEnable    bool    `json:"invert_enable" mapstructure:"invert_enable"`
	LimitActiveHigh bool    `json:"limit_active_high" mapstructure:"limit_active_high"`
	InvertAlarm     bool    `json:"invert_alarm" mapstructure:"invert_alarm"`
	InvertLimitLED  bool    `json:"invert_limit_led" mapstructure:"invert_limit_led"`
}

// FeedConfig is the initial gear ratio from encoder counts to motor steps
type FeedConfig struct {
	Numerator   int64 `json:"numerator" mapstructure:"numerator"`
	Denominator int64 `json:"denominator" mapstructure:"denominator"`
	Reverse     bool  `json:"reverse" mapstructure:"reverse"`
}

// Machine is the complete leadscrew configuration
type Machine struct {
	Name string `json:"name" mapstructure:"name"`

	// Stepper drive
	Backlash          int32  `json:"backlash" mapstructure:"backlash"`                     // steps
	MaxBufferedSteps  int32  `json:"max_buffered_steps" mapstructure:"max_buffered_steps"` // steps
	Microsteps        int32  `json:"microsteps" mapstructure:"microsteps"`
	MotorResolution   int32  `json:"motor_resolution" mapstructure:"motor_resolution"` // full steps per revolution
	RetractSpeed      uint32 `json:"retract_speed" mapstructure:"retract_speed"`       // tick divider
	RetractRampFactor uint32 `json:"retract_ramp_factor" mapstructure:"retract_ramp_factor"`

	// Spindle encoder
	EncoderResolution uint32 `json:"encoder_resolution" mapstructure:"encoder_resolution"` // counts per spindle revolution
	EncoderMaxCount   uint32 `json:"encoder_max_count" mapstructure:"encoder_max_count"`   // counter wraps here

	// Timing
	CycleUS          uint32 `json:"cycle_us" mapstructure:"cycle_us"`                     // tick period
	RPMSampleMS      uint32 `json:"rpm_sample_ms" mapstructure:"rpm_sample_ms"`           // spindle speed sampling
	StatusIntervalMS uint32 `json:"status_interval_ms" mapstructure:"status_interval_ms"` // telemetry period

	ThreadMode bool       `json:"thread_mode" mapstructure:"thread_mode"`
	Feed       FeedConfig `json:"feed" mapstructure:"feed"`
	Pins       PinConfig  `json:"pins" mapstructure:"pins"`
}
