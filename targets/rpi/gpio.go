//go:build linux

package main

import (
	"fmt"
	"strconv"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"els/core"
)

// PeriphGPIODriver implements core.GPIODriver with periph.io pins looked
// up by BCM number
type PeriphGPIODriver struct {
	mu             sync.Mutex
	configuredPins map[core.GPIOPin]gpio.PinIO
}

// NewPeriphGPIODriver creates a driver. host.Init must have been called.
func NewPeriphGPIODriver() *PeriphGPIODriver {
	return &PeriphGPIODriver{
		configuredPins: make(map[core.GPIOPin]gpio.PinIO),
	}
}

// Pin returns the periph pin for a BCM number
func (d *PeriphGPIODriver) Pin(pin core.GPIOPin) (gpio.PinIO, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookup(pin)
}

func (d *PeriphGPIODriver) lookup(pin core.GPIOPin) (gpio.PinIO, error) {
	if p, ok := d.configuredPins[pin]; ok {
		return p, nil
	}
	p := gpioreg.ByName("GPIO" + strconv.Itoa(int(pin)))
	if p == nil {
		return nil, fmt.Errorf("no such pin GPIO%d", pin)
	}
	return p, nil
}

// ConfigureOutput configures a pin as a digital output, initially low
func (d *PeriphGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, err := d.lookup(pin)
	if err != nil {
		return err
	}
	if err := p.Out(gpio.Low); err != nil {
		return fmt.Errorf("configure %s as output: %w", p, err)
	}
	d.configuredPins[pin] = p
	return nil
}

// ConfigureInputPullUp configures a pin as an input with the pull-up enabled
func (d *PeriphGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, err := d.lookup(pin)
	if err != nil {
		return err
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("configure %s as input: %w", p, err)
	}
	d.configuredPins[pin] = p
	return nil
}

// SetPin sets the pin to high (true) or low (false)
func (d *PeriphGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	d.mu.Lock()
	p, ok := d.configuredPins[pin]
	d.mu.Unlock()
	if !ok {
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
		return d.SetPin(pin, value)
	}
	return p.Out(gpio.Level(value))
}

// ReadPin reads the pin level. Unconfigured pins read low.
func (d *PeriphGPIODriver) ReadPin(pin core.GPIOPin) bool {
	d.mu.Lock()
	p, ok := d.configuredPins[pin]
	d.mu.Unlock()
	if !ok {
		return false
	}
	return p.Read() == gpio.High
}
