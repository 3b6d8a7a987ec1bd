package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// GPIODriver is the abstract GPIO interface that the pin adapters use.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInputPullUp configures a pin as a digital input with pull-up resistor
	ConfigureInputPullUp(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error

	// ReadPin reads the current pin level
	ReadPin(pin GPIOPin) bool
}

// Outputs drives the stepper driver lines. Levels are logical:
// true means asserted, polarity is handled by the implementation.
type Outputs interface {
	SetStep(on bool)
	SetDirection(on bool)
	SetEnable(on bool)
}

// LimitInput reports the current level of the limit switch
type LimitInput interface {
	Released() bool
}

// AlarmInput reports the stepper driver alarm line
type AlarmInput interface {
	Alarm() bool
}

// Indicator shows the limit-pending state to the operator
type Indicator interface {
	SetLimitIndicator(on bool)
}

// OutputPins selects the pins and polarity used by PinOutputs
type OutputPins struct {
	Step, Direction, Enable                   GPIOPin
	InvertStep, InvertDirection, InvertEnable bool
}

// PinOutputs implements Outputs on a GPIODriver
type PinOutputs struct {
	driver GPIODriver
	pins   OutputPins
}

// NewPinOutputs configures the step, direction and enable pins and drives them
// to their idle levels.
func NewPinOutputs(driver GPIODriver, pins OutputPins) (*PinOutputs, error) {
	for _, pin := range []GPIOPin{pins.Step, pins.Direction, pins.Enable} {
		if err := driver.ConfigureOutput(pin); err != nil {
			return nil, err
		}
	}
	p := &PinOutputs{driver: driver, pins: pins}
	p.SetStep(false)
	p.SetDirection(false)
	p.SetEnable(false)
	return p, nil
}

func (p *PinOutputs) SetStep(on bool) {
	_ = p.driver.SetPin(p.pins.Step, on != p.pins.InvertStep)
}

func (p *PinOutputs) SetDirection(on bool) {
	_ = p.driver.SetPin(p.pins.Direction, on != p.pins.InvertDirection)
}

func (p *PinOutputs) SetEnable(on bool) {
	_ = p.driver.SetPin(p.pins.Enable, on != p.pins.InvertEnable)
}

// PinLimit reads a limit switch wired to a pulled-up input.
// With ActiveHigh unset the switch pulls the line low when tripped.
type PinLimit struct {
	driver     GPIODriver
	pin        GPIOPin
	activeHigh bool
}

// NewPinLimit configures the limit switch input
func NewPinLimit(driver GPIODriver, pin GPIOPin, activeHigh bool) (*PinLimit, error) {
	if err := driver.ConfigureInputPullUp(pin); err != nil {
		return nil, err
	}
	return &PinLimit{driver: driver, pin: pin, activeHigh: activeHigh}, nil
}

// Released returns true while the switch is not tripped
func (p *PinLimit) Released() bool {
	return p.driver.ReadPin(p.pin) != p.activeHigh
}

// PinAlarm reads the driver alarm output
type PinAlarm struct {
	driver GPIODriver
	pin    GPIOPin
	invert bool
}

// NewPinAlarm configures the alarm input
func NewPinAlarm(driver GPIODriver, pin GPIOPin, invert bool) (*PinAlarm, error) {
	if err := driver.ConfigureInputPullUp(pin); err != nil {
		return nil, err
	}
	return &PinAlarm{driver: driver, pin: pin, invert: invert}, nil
}

func (p *PinAlarm) Alarm() bool {
	return p.driver.ReadPin(p.pin) != p.invert
}

// PinIndicator drives the limit LED
type PinIndicator struct {
	driver GPIODriver
	pin    GPIOPin
	invert bool
}

// NewPinIndicator configures the LED output and turns it off
func NewPinIndicator(driver GPIODriver, pin GPIOPin, invert bool) (*PinIndicator, error) {
	if err := driver.ConfigureOutput(pin); err != nil {
		return nil, err
	}
	p := &PinIndicator{driver: driver, pin: pin, invert: invert}
	p.SetLimitIndicator(false)
	return p, nil
}

func (p *PinIndicator) SetLimitIndicator(on bool) {
	_ = p.driver.SetPin(p.pin, on != p.invert)
}
