package app

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"els/host/monitor"
	"els/host/serial"
)

func newMonitorCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Serve drive telemetry from a serial port or a recording",
		Long: `Read status frames from the controller and serve them over HTTP:

  /metrics  Prometheus metrics
  /status   latest report as JSON
  /ws       live report stream
  /healthz  liveness`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(v)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			port, err := openSource(v, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return monitor.New(log).Run(ctx, port, v.GetString("monitor.addr"))
		},
	}

	cmd.Flags().String("device", "/dev/ttyACM0", "Serial device path")
	cmd.Flags().Int("baud", serial.DefaultConfig("").Baud, "Baud rate (ignored for USB CDC)")
	cmd.Flags().String("addr", ":9100", "HTTP listen address")
	cmd.Flags().String("replay", "", "Read frames from a recording instead of a device")
	bindFlag(v, "monitor.device", cmd, "device")
	bindFlag(v, "monitor.baud", cmd, "baud")
	bindFlag(v, "monitor.addr", cmd, "addr")
	bindFlag(v, "monitor.replay", cmd, "replay")
	return cmd
}

func openSource(v *viper.Viper, log *zap.Logger) (io.ReadCloser, error) {
	if path := v.GetString("monitor.replay"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open recording: %w", err)
		}
		log.Info("replaying telemetry", zap.String("file", path))
		return f, nil
	}

	cfg := serial.DefaultConfig(v.GetString("monitor.device"))
	cfg.Baud = v.GetInt("monitor.baud")
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("connected", zap.String("device", cfg.Device), zap.Int("baud", cfg.Baud))
	return port, nil
}
