//go:build rp2040

package main

import (
	"machine"
)

// InitUSB initializes USB serial communication
func InitUSB() {
	// On RP2040, machine.Serial is USB CDC, not UART
	_ = machine.Serial.Configure(machine.UARTConfig{})
}

// USBWriteBytes writes multiple bytes to USB
func USBWriteBytes(data []byte) (int, error) {
	return machine.Serial.Write(data)
}
