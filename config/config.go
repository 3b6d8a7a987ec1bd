package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"els/core"
)

var (
	ErrInvalidEncoder = errors.New("encoder resolution must be positive and not above the max count")
	ErrInvalidCycle   = errors.New("cycle period must be positive")
	ErrInvalidFeed    = errors.New("feed denominator must not be zero")
)

// LoadConfig parses a JSON configuration, applies defaults and validates it
func LoadConfig(jsonData []byte) (*Machine, error) {
	var config Machine

	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Finalize applies defaults and validates a configuration built elsewhere,
// such as one decoded by viper
func Finalize(config *Machine) error {
	applyDefaults(config)
	return config.Validate()
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *Machine) {
	if config.Name == "" {
		config.Name = "els"
	}

	// Stepper drive
	if config.Backlash == 0 {
		config.Backlash = 2
	}
	if config.MaxBufferedSteps == 0 {
		config.MaxBufferedSteps = 100
	}
	if config.Microsteps == 0 {
		config.Microsteps = 8
	}
	if config.MotorResolution == 0 {
		config.MotorResolution = 200
	}
	if config.RetractSpeed == 0 {
		config.RetractSpeed = 4
	}
	if config.RetractRampFactor == 0 {
		config.RetractRampFactor = 5 // start and finish at a fifth of full speed
	}

	// Spindle encoder
	if config.EncoderResolution == 0 {
		config.EncoderResolution = 4096
	}
	if config.EncoderMaxCount == 0 {
		config.EncoderMaxCount = 0x01000000 // 24-bit position counter
	}

	// Timing
	if config.CycleUS == 0 {
		config.CycleUS = 5 // 200kHz
	}
	if config.RPMSampleMS == 0 {
		config.RPMSampleMS = 100
	}
	if config.StatusIntervalMS == 0 {
		config.StatusIntervalMS = 100
	}

	if config.Feed.Denominator == 0 {
		config.Feed.Denominator = 1
	}
}

// Default returns a configuration with every default applied
func Default() *Machine {
	config := &Machine{
		Pins: PinConfig{
			Step:      2,
			Direction: 3,
			Enable:    4,
			Limit:     5,
			EncoderA:  10,
			EncoderB:  11,
		},
	}
	applyDefaults(config)
	return config
}

// Validate checks the configuration for consistency
func (m *Machine) Validate() error {
	if err := m.Params().Validate(); err != nil {
		return fmt.Errorf("invalid drive parameters: %w", err)
	}
	if m.EncoderResolution == 0 || m.EncoderResolution > m.EncoderMaxCount {
		return ErrInvalidEncoder
	}
	if m.CycleUS == 0 {
		return ErrInvalidCycle
	}
	if m.Feed.Denominator == 0 {
		return ErrInvalidFeed
	}
	return nil
}

// StepsPerRevolution returns motor steps per leadscrew revolution
func (m *Machine) StepsPerRevolution() int32 {
	return m.Microsteps * m.MotorResolution
}

// Params converts the configuration into drive parameters
func (m *Machine) Params() core.Params {
	return core.Params{
		Backlash:           m.Backlash,
		MaxBufferedSteps:   m.MaxBufferedSteps,
		StepsPerRevolution: m.StepsPerRevolution(),
		RetractSpeed:       m.RetractSpeed,
		RetractRampFactor:  m.RetractRampFactor,
	}
}

// CoreFeed returns the configured feed ratio
func (m *Machine) CoreFeed() core.Feed {
	return core.Feed{Numerator: m.Feed.Numerator, Denominator: m.Feed.Denominator}
}

// OutputPins returns the stepper output assignment
func (m *Machine) OutputPins() core.OutputPins {
	return core.OutputPins{
		Step:            core.GPIOPin(m.Pins.Step),
		Direction:       core.GPIOPin(m.Pins.Direction),
		Enable:          core.GPIOPin(m.Pins.Enable),
		InvertStep:      m.Pins.InvertStep,
		InvertDirection: m.Pins.InvertDirection,
		InvertEnable:    m.Pins.InvertEnable,
	}
}

// DriveOptions builds the optional alarm and indicator collaborators for the
// configured pins
func (m *Machine) DriveOptions(driver core.GPIODriver) ([]core.Option, error) {
	var opts []core.Option
	if m.Pins.Alarm != nil {
		alarm, err := core.NewPinAlarm(driver, core.GPIOPin(*m.Pins.Alarm), m.Pins.InvertAlarm)
		if err != nil {
			return nil, fmt.Errorf("alarm pin: %w", err)
		}
		opts = append(opts, core.WithAlarm(alarm))
	}
	if m.Pins.LimitLED != nil {
		led, err := core.NewPinIndicator(driver, core.GPIOPin(*m.Pins.LimitLED), m.Pins.InvertLimitLED)
		if err != nil {
			return nil, fmt.Errorf("limit LED pin: %w", err)
		}
		opts = append(opts, core.WithIndicator(led))
	}
	return opts, nil
}

// NewDrive builds a drive on a GPIO driver using the configured pins
func (m *Machine) NewDrive(driver core.GPIODriver, opts ...core.Option) (*core.Drive, error) {
	outputs, err := core.NewPinOutputs(driver, m.OutputPins())
	if err != nil {
		return nil, fmt.Errorf("stepper pins: %w", err)
	}
	limit, err := core.NewPinLimit(driver, core.GPIOPin(m.Pins.Limit), m.Pins.LimitActiveHigh)
	if err != nil {
		return nil, fmt.Errorf("limit pin: %w", err)
	}
	pinOpts, err := m.DriveOptions(driver)
	if err != nil {
		return nil, err
	}
	drive, err := core.NewDrive(m.Params(), outputs, limit, append(pinOpts, opts...)...)
	if err != nil {
		return nil, err
	}
	drive.SetThreadMode(m.ThreadMode)
	return drive, nil
}
