//go:build rp2040

package main

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// The state machine emits one fixed-width STEP pulse per FIFO word. The
// drive still sequences STEP and DIR tick by tick; PIO only times the
// high phase so it does not depend on loop jitter.
//
// At clkdiv 10 (12.5MHz) the high phase is 32 cycles, about 2.5us.
func buildPulseProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),                    // 0: pull block
		asm.Set(rp2pio.SetDestPins, 1).Delay(31).Encode(), // 1: set pins, 1 [31]
		asm.Set(rp2pio.SetDestPins, 0).Encode(),           // 2: set pins, 0
		// .wrap
	}
}

const pulseProgramOrigin = 0

// PIOOutputs implements core.Outputs with a PIO-timed STEP line and plain
// GPIO for DIR and ENABLE
type PIOOutputs struct {
	pio *rp2pio.PIO
	sm  rp2pio.StateMachine

	stepPin   machine.Pin
	dirPin    machine.Pin
	enablePin machine.Pin

	invertDir    bool
	invertEnable bool

	dropped uint32 // pulses lost to a full FIFO
}

// NewPIOOutputs creates the outputs on a PIO block (0 or 1) and state
// machine (0-3)
func NewPIOOutputs(pioNum, smNum uint8) *PIOOutputs {
	var pioHW *rp2pio.PIO
	if pioNum == 0 {
		pioHW = rp2pio.PIO0
	} else {
		pioHW = rp2pio.PIO1
	}
	return &PIOOutputs{
		pio: pioHW,
		sm:  pioHW.StateMachine(smNum),
	}
}

// Init loads the pulse program and configures the pins. STEP inversion is
// not supported by the program; the pin idles low.
func (o *PIOOutputs) Init(step, dir, enable uint8, invertDir, invertEnable bool) error {
	o.stepPin = machine.Pin(step)
	o.dirPin = machine.Pin(dir)
	o.enablePin = machine.Pin(enable)
	o.invertDir = invertDir
	o.invertEnable = invertEnable

	o.dirPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	o.enablePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	o.dirPin.Set(invertDir)
	o.enablePin.Set(invertEnable)

	// Claim the state machine before touching it
	o.sm.TryClaim()

	program := buildPulseProgram()
	offset, err := o.pio.AddProgram(program, pulseProgramOrigin)
	if err != nil {
		return err
	}

	o.stepPin.Configure(machine.PinConfig{Mode: o.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(o.stepPin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(10, 0)

	// Pin directions must be set after Init
	o.sm.Init(offset, cfg)
	o.sm.SetPindirsConsecutive(o.stepPin, 1, true)
	o.sm.SetPinsConsecutive(o.stepPin, 1, false)
	o.sm.SetEnabled(true)
	return nil
}

// SetStep queues a pulse on the rising edge. The falling edge is timed by
// the state machine.
func (o *PIOOutputs) SetStep(on bool) {
	if !on {
		return
	}
	if o.sm.IsTxFIFOFull() {
		o.dropped++
		return
	}
	o.sm.TxPut(1)
}

func (o *PIOOutputs) SetDirection(on bool) {
	o.dirPin.Set(on != o.invertDir)
}

func (o *PIOOutputs) SetEnable(on bool) {
	o.enablePin.Set(on != o.invertEnable)
}

// Dropped returns the number of pulses lost to a full FIFO
func (o *PIOOutputs) Dropped() uint32 {
	return o.dropped
}

// Stop discards queued pulses and restarts the state machine
func (o *PIOOutputs) Stop() {
	o.sm.SetEnabled(false)
	o.sm.ClearFIFOs()
	o.sm.Restart()
	o.sm.SetEnabled(true)
}
