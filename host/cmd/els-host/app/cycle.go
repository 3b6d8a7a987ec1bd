package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"els/core"
	"els/sim"
)

var errNoFeed = errors.New("no feed selected: set --feed-num or machine.feed.numerator")

func newCycleCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Simulate repeated thread-to-shoulder passes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(v)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runCycle(v, log)
		},
	}

	cmd.Flags().Uint16("rpm", 300, "Spindle speed while cutting")
	cmd.Flags().Uint32("length", 2000, "Spindle counts from start to shoulder")
	cmd.Flags().Int("starts", 1, "Thread starts")
	cmd.Flags().Int("passes", 2, "Passes to cut")
	cmd.Flags().Duration("overrun", 20*time.Millisecond, "Time the spindle keeps turning at the shoulder")
	cmd.Flags().Duration("timeout", 10*time.Second, "Simulated time allowed for each phase")
	cmd.Flags().Int64("feed-num", 0, "Feed numerator (overrides config)")
	cmd.Flags().Int64("feed-den", 0, "Feed denominator (overrides config)")
	cmd.Flags().String("plot", "", "Write a position trace PNG")
	for _, name := range []string{"rpm", "length", "starts", "passes", "overrun", "timeout",
		"feed-num", "feed-den", "plot"} {
		bindFlag(v, "cycle."+name, cmd, name)
	}
	return cmd
}

func runCycle(v *viper.Viper, log *zap.Logger) error {
	cfg, err := loadMachine(v)
	if err != nil {
		return err
	}
	if n := v.GetInt64("cycle.feed-num"); n != 0 {
		cfg.Feed.Numerator = n
	}
	if d := v.GetInt64("cycle.feed-den"); d != 0 {
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
		return int(core.TicksFromUS(uint32(d/time.Microsecond), cfg.CycleUS))
	}
	tc := sim.ThreadCycle{
		RPM:      uint16(v.GetUint("cycle.rpm")),
		Length:   v.GetUint32("cycle.length"),
		Overrun:  toTicks(v.GetDuration("cycle.overrun")),
		Starts:   v.GetInt("cycle.starts"),
		Passes:   v.GetInt("cycle.passes"),
		MaxTicks: toTicks(v.GetDuration("cycle.timeout")),
	}
	plotPath := v.GetString("cycle.plot")
	if plotPath != "" {
		tc.SampleEvery = max(toTicks(time.Millisecond), 1)
	}

	log.Info("cutting",
		zap.String("machine", cfg.Name),
		zap.Int("starts", tc.Starts),
		zap.Int("passes", tc.Passes),
		zap.Uint32("length", tc.Length))

	res, err := m.RunThreadCycle(tc)
	if err != nil {
		return err
	}
	for i, landed := range res.Landed {
		log.Info("pass",
			zap.Int("pass", i+1),
			zap.Int32("landed", landed),
			zap.Int32("error", landed-res.Shoulder))
	}
	for _, violation := range res.Violations {
		log.Warn("timing violation", zap.String("detail", violation))
	}
	log.Info("done",
		zap.Int32("shoulder", res.Shoulder),
		zap.Int32("start", res.Start),
		zap.Int32("motor", res.Motor),
		zap.Int("pulses", res.Pulses))

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
