//go:build linux

// Command els-rpi runs the leadscrew on a Raspberry Pi: stepper outputs and
// switch/encoder inputs on the GPIO header, telemetry on a serial port.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"periph.io/x/host/v3"

	"els/config"
	"els/core"
	"els/host/serial"
)

var (
	configPath = flag.String("config", "", "Machine configuration (JSON)")
	cycle      = flag.Duration("cycle", 50*time.Microsecond, "Control tick period")
	telemetry  = flag.String("telemetry", "", "Serial device for status frames")
	baud       = flag.Int("baud", 115200, "Telemetry baud rate")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	log, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("stopped", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func loadConfig() (*config.Machine, error) {
	if *configPath == "" {
		cfg := config.Default()
		cfg.CycleUS = uint32(*cycle / time.Microsecond)
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(*configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return config.LoadConfig(data)
}

func run(ctx context.Context, log *zap.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("init periph host: %w", err)
	}

	coreLog := log.Named("core")
	core.SetDebugWriter(func(s string) { coreLog.Info(s) })
	core.SetDebugEnabled(*debug)

	gpio := NewPeriphGPIODriver()
	drive, err := cfg.NewDrive(gpio)
	if err != nil {
		return err
	}

	limitPin, err := gpio.Pin(core.GPIOPin(cfg.Pins.Limit))
	if err != nil {
		return err
	}
	encA, err := gpio.Pin(core.GPIOPin(cfg.Pins.EncoderA))
	if err != nil {
		return err
	}
	encB, err := gpio.Pin(core.GPIOPin(cfg.Pins.EncoderB))
	if err != nil {
		return err
	}
	encoder, err := newQuadratureInput(encA, encB, cfg.EncoderMaxCount)
	if err != nil {
		return fmt.Errorf("encoder pins: %w", err)
	}

	follower := core.NewFollower(drive, encoder, cfg.EncoderResolution)
	follower.SetFeed(cfg.CoreFeed())
	follower.SetReverse(cfg.Feed.Reverse)

	var status *serial.StatusWriter
	if *telemetry != "" {
		port, err := serial.Open(&serial.Config{Device: *telemetry, Baud: *baud})
		if err != nil {
			return err
		}
		defer port.Close()
		status = serial.NewStatusWriter(port)
	}

	log.Info("starting",
		zap.String("machine", cfg.Name),
		zap.Uint32("cycle_us", cfg.CycleUS),
		zap.Uint32("tick_rate", core.TicksPerSecond(cfg.CycleUS)),
		zap.Bool("core_debug", core.IsDebugEnabled()),
		zap.Bool("thread_mode", cfg.ThreadMode),
		zap.Int64("feed_num", cfg.Feed.Numerator),
		zap.Int64("feed_den", cfg.Feed.Denominator))

	drive.SetEnabled(true)
	defer drive.SetEnabled(false)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watchLimit(ctx, limitPin, cfg.Pins.LimitActiveHigh, drive, log)
	})
	g.Go(func() error { return encoder.watch(ctx, encA) })
	g.Go(func() error { return encoder.watch(ctx, encB) })
	g.Go(func() error {
		return controlLoop(ctx, cfg, drive, follower, encoder, log)
	})
	g.Go(func() error {
		return reportLoop(ctx, cfg, drive, status, log)
	})
	return g.Wait()
}

// controlLoop runs the tick at the configured period on a locked thread.
// It spins between ticks; sleeping is far too coarse at this rate.
func controlLoop(ctx context.Context, cfg *config.Machine, drive *core.Drive,
	follower *core.Follower, encoder core.Encoder, log *zap.Logger) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	period := time.Duration(core.TicksToUS(1, cfg.CycleUS)) * time.Microsecond
	rpmPeriod := time.Duration(cfg.RPMSampleMS) * time.Millisecond
	rpm := core.NewRPMMeter(cfg.EncoderResolution, cfg.EncoderMaxCount)

	start := time.Now()
	next := start.Add(period)
	lastRPM := start
	var late uint64

	for i := 0; ; i++ {
		if i&0x3ff == 0 && ctx.Err() != nil {
			log.Info("control loop stopped", zap.Uint64("late_ticks", late))
			return ctx.Err()
		}
		now := time.Now()
		if now.Before(next) {
			continue
		}
		next = next.Add(period)
		if behind := now.Sub(next); behind > 4*period {
			late += uint64(behind / period)
			next = now.Add(period)
		}

		if elapsed := now.Sub(lastRPM); elapsed >= rpmPeriod {
			rpm.Sample(encoder.Position(), uint32(elapsed/time.Microsecond))
			lastRPM = now
		}
		if drive.CheckStepBacklog() {
			log.Error("backlog fault, drive disabled",
				zap.Int32("desired", drive.DesiredPosition()),
				zap.Int32("current", drive.Position()))
			if core.IsDebugEnabled() {
				core.DumpEvents(drive.Events())
				drive.ClearEvents()
			}
		}
		follower.Tick(rpm.RPM(), rpm.Forward())
	}
}

// reportLoop sends status frames and logs state changes
func reportLoop(ctx context.Context, cfg *config.Machine, drive *core.Drive,
	status *serial.StatusWriter, log *zap.Logger) error {
	ticker := time.NewTicker(time.Duration(cfg.StatusIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	var prev core.Snapshot
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		snap := drive.Snapshot()
		if snap.LimitState != prev.LimitState {
			log.Info("limit state", zap.Stringer("from", prev.LimitState), zap.Stringer("to", snap.LimitState))
		}
		if snap.Alarm && !prev.Alarm {
			log.Warn("stepper driver alarm")
		}
		prev = snap

		if status != nil {
			if err := status.WriteSnapshot(snap); err != nil {
				log.Warn("telemetry write failed", zap.Error(err))
			}
		}
	}
}
