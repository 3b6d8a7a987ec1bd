//go:build rp2040

package main

import (
	"machine"
	"strconv"
	"time"

	"els/config"
	"els/core"
	"els/protocol"
)

var (
	drive    *core.Drive
	follower *core.Follower
	encoder  *QuadratureEncoder
	outputs  *PIOOutputs
	rpm      *core.RPMMeter

	outputBuffer *protocol.ScratchOutput
	framer       *protocol.Framer

	// Debug counters
	loopPanics    uint32
	writeFailures uint32
)

func main() {
	// Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()
	InitDebugUART()

	cfg := config.Default()
	cfg.Name = "els-rp2040"
	if err := setup(cfg); err != nil {
		for {
			debugPrintln("setup failed: " + err.Error())
			time.Sleep(time.Second)
		}
	}

	outputBuffer = protocol.NewScratchOutput()
	framer = protocol.NewFramer(outputBuffer)

	drive.SetEnabled(true)
	debugPrintln("drive enabled")

	run(cfg)
}

// setup builds the drive, its inputs and the spindle follower
func setup(cfg *config.Machine) error {
	gpio := NewRPGPIODriver()

	outputs = NewPIOOutputs(0, 0)
	if err := outputs.Init(uint8(cfg.Pins.Step), uint8(cfg.Pins.Direction), uint8(cfg.Pins.Enable),
		cfg.Pins.InvertDirection, cfg.Pins.InvertEnable); err != nil {
		return err
	}

	limit, err := core.NewPinLimit(gpio, core.GPIOPin(cfg.Pins.Limit), cfg.Pins.LimitActiveHigh)
	if err != nil {
		return err
	}
	opts, err := cfg.DriveOptions(gpio)
	if err != nil {
		return err
	}
	drive, err = core.NewDrive(cfg.Params(), outputs, limit, opts...)
	if err != nil {
		return err
	}
	drive.SetThreadMode(cfg.ThreadMode)

	// The edge interrupt only raises the pending flag
	edge := machine.PinFalling
	if cfg.Pins.LimitActiveHigh {
		edge = machine.PinRising
	}
	if err := machine.Pin(cfg.Pins.Limit).SetInterrupt(edge, func(machine.Pin) {
		drive.LimitReached()
	}); err != nil {
		return err
	}

	encoder, err = NewQuadratureEncoder(machine.Pin(cfg.Pins.EncoderA), machine.Pin(cfg.Pins.EncoderB), cfg.EncoderMaxCount)
	if err != nil {
		return err
	}
	follower = core.NewFollower(drive, encoder, cfg.EncoderResolution)
	follower.SetFeed(cfg.CoreFeed())
	follower.SetReverse(cfg.Feed.Reverse)

	rpm = core.NewRPMMeter(cfg.EncoderResolution, cfg.EncoderMaxCount)
	return nil
}

// run is the control loop. The tick is paced from the hardware timer; the
// speed estimate and status reports run between ticks.
func run(cfg *config.Machine) {
	ticks := newPacer(cfg.CycleUS)
	rpmPeriod := cfg.RPMSampleMS * 1000
	statusPeriod := cfg.StatusIntervalMS * 1000

	lastRPM := hardwareTime()
	lastStatus := lastRPM
	faulted := false

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					loopPanics++
					outputBuffer.Reset()
				}
			}()

			now := hardwareTime()
			if ticks.due(now) {
				if drive.CheckStepBacklog() {
					outputs.Stop()
					faulted = true
				}
				follower.Tick(rpm.RPM(), rpm.Forward())
			}

			if elapsed := now - lastRPM; elapsed >= rpmPeriod {
				rpm.Sample(encoder.Position(), elapsed)
				lastRPM = now
			}

			if faulted || now-lastStatus >= statusPeriod {
				sendStatus()
				lastStatus = now
				if faulted {
					debugPrintln("drive disabled, late ticks " + strconv.FormatUint(uint64(ticks.late), 10) +
						", dropped pulses " + strconv.FormatUint(uint64(outputs.Dropped()), 10) +
						", loop panics " + strconv.FormatUint(uint64(loopPanics), 10) +
						", write failures " + strconv.FormatUint(uint64(writeFailures), 10))
					core.DumpEvents(drive.Events())
					drive.ClearEvents()
					faulted = false
				}
			}
		}()
	}
}

// sendStatus frames a drive snapshot and writes it to USB
func sendStatus() {
	snap := drive.Snapshot()
	outputBuffer.Reset()
	err := framer.EncodeFrame(func(out protocol.OutputBuffer) {
		core.EncodeStatus(out, snap)
	})
	if err != nil {
		return
	}

	result := outputBuffer.Result()
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			// Host not listening, drop the report
			writeFailures++
			return
		}
		written += n
	}
}
