//go:build rp2040

package main

import (
	"machine"

	"els/core"
)

var debugUART *machine.UART

// InitDebugUART routes core debug output to UART0 on GPIO0 (TX) and GPIO1
// (RX) at 115200 baud. USB carries status frames only.
func InitDebugUART() {
	debugUART = machine.UART0

	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO0,
		RX:       machine.GPIO1,
	})
	if err != nil {
		debugUART = nil
		return
	}

	core.SetDebugWriter(debugPrintln)
	core.SetDebugEnabled(true)
	debugPrintln("=== ELS debug UART ===")
}

func debugPrintln(s string) {
	if debugUART == nil {
		return
	}
	debugUART.Write([]byte(s))
	debugUART.Write([]byte("\r\n"))
}
