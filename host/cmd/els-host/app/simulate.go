package app

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"els/core"
	"els/host/serial"
	"els/sim"
)

func newSimulateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the motion core against a simulated spindle and stepper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(v)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runSimulate(v, log)
		},
	}

	cmd.Flags().Uint16("rpm", 300, "Spindle speed")
	cmd.Flags().Bool("reverse-spindle", false, "Turn the spindle backwards")
	cmd.Flags().Duration("duration", time.Second, "Simulated time")
	cmd.Flags().Bool("thread", false, "Use thread-mode limit recovery")
	cmd.Flags().Duration("limit-at", -1, "Trip the limit switch at this time")
	cmd.Flags().Duration("release-at", -1, "Release the limit switch at this time")
	cmd.Flags().Int64("feed-num", 0, "Feed numerator (overrides config)")
	cmd.Flags().Int64("feed-den", 0, "Feed denominator (overrides config)")
	cmd.Flags().String("plot", "", "Write a position trace PNG")
	cmd.Flags().Int("points", 2000, "Samples in the plot")
	cmd.Flags().String("telemetry", "", "Record status frames to a file for 'monitor --replay'")
	for _, name := range []string{"rpm", "reverse-spindle", "duration", "thread", "limit-at",
		"release-at", "feed-num", "feed-den", "plot", "points", "telemetry"} {
		bindFlag(v, "simulate."+name, cmd, name)
	}
	return cmd
}

func runSimulate(v *viper.Viper, log *zap.Logger) error {
	cfg, err := loadMachine(v)
	if err != nil {
		return err
	}
	if v.GetBool("simulate.thread") {
		cfg.ThreadMode = true
	}
	if n := v.GetInt64("simulate.feed-num"); n != 0 {
		cfg.Feed.Numerator = n
	}
	if d := v.GetInt64("simulate.feed-den"); d != 0 {
		cfg.Feed.Denominator = d
	}

	if cfg.Feed.Numerator == 0 {
		return errNoFeed
	}
	m, err := sim.New(cfg)
	if err != nil {
		return err
	}

	cycle := time.Duration(cfg.CycleUS) * time.Microsecond
	toTicks := func(d time.Duration) int {
		if d < 0 {
			return -1
		}
		return int(core.TicksFromUS(uint32(d/time.Microsecond), cfg.CycleUS))
	}
	sc := sim.Scenario{
		Ticks:       toTicks(v.GetDuration("simulate.duration")),
		RPM:         uint16(v.GetUint("simulate.rpm")),
		Forward:     !v.GetBool("simulate.reverse-spindle"),
		LimitAt:     toTicks(v.GetDuration("simulate.limit-at")),
		ReleaseAt:   toTicks(v.GetDuration("simulate.release-at")),
		StatusEvery: toTicks(time.Duration(cfg.StatusIntervalMS) * time.Millisecond),
	}
	plotPath := v.GetString("simulate.plot")
	if points := v.GetInt("simulate.points"); plotPath != "" && points > 0 {
		sc.SampleEvery = max(sc.Ticks/points, 1)
	}

	var report func(core.Snapshot) error
	if path := v.GetString("simulate.telemetry"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create telemetry file: %w", err)
		}
		defer f.Close()
		report = serial.NewStatusWriter(f).WriteSnapshot
	}

	log.Info("simulating",
		zap.String("machine", cfg.Name),
		zap.Int("ticks", sc.Ticks),
		zap.Uint32("tick_rate", core.TicksPerSecond(cfg.CycleUS)),
		zap.Uint16("rpm", sc.RPM),
		zap.Bool("thread_mode", cfg.ThreadMode),
		zap.Int64("feed_num", cfg.Feed.Numerator),
		zap.Int64("feed_den", cfg.Feed.Denominator))

	res, err := m.RunScenario(sc, report)
	if err != nil {
		return err
	}

	for _, e := range res.Events {
		log.Debug("event",
			zap.String("type", core.EventName(e.Type)),
			zap.Uint32("tick", e.Tick),
			zap.Int32("v1", e.Value1),
			zap.Int32("v2", e.Value2))
	}
	for _, violation := range res.Violations {
		log.Warn("timing violation", zap.String("detail", violation))
	}

	snap := m.Drive.Snapshot()
	log.Info("done",
		zap.Int32("motor", res.Motor),
		zap.Int32("current", snap.Current),
		zap.Int32("desired", snap.Desired),
		zap.Int("pulses", res.Pulses),
		zap.Int("faults", res.Faults),
		zap.Stringer("limit_state", snap.LimitState))

	if plotPath != "" {
		if err := writePlot(plotPath, res.Samples, cycle); err != nil {
			return err
		}
		log.Info("wrote plot", zap.String("file", plotPath))
	}
	if res.Faults > 0 {
		return fmt.Errorf("drive faulted %d times", res.Faults)
	}
	return nil
}
