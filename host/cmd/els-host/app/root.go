// Package app provides the els-host commands.
package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"els/config"
)

// Build information, set with -ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// NewRootCmd creates the els-host command tree. Flags may also be set
// through ELS_ environment variables (ELS_MONITOR_ADDR) or the config file.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("els")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:          "els-host",
		Short:        "Electronic leadscrew host tools",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path := v.GetString("config")
			if path == "" {
				return nil
			}
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config %s: %w", path, err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().Bool("debug", false, "Enable debug logging")
	root.PersistentFlags().String("config", "", "Machine configuration file (JSON, YAML or TOML)")
	bindFlag(v, "debug", root, "debug")
	bindFlag(v, "config", root, "config")

	root.AddCommand(newCycleCmd(v))
	root.AddCommand(newMonitorCmd(v))
	root.AddCommand(newSimulateCmd(v))
	root.AddCommand(newVersionCmd())
	return root
}

// bindFlag binds a command flag to a viper key. Binding only fails for a
// missing flag, which is a programming error.
func bindFlag(v *viper.Viper, key string, cmd *cobra.Command, name string) {
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		flag = cmd.PersistentFlags().Lookup(name)
	}
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", name, err))
	}
}

// newLogger builds a production logger, or a development one with --debug
func newLogger(v *viper.Viper) (*zap.Logger, error) {
	if v.GetBool("debug") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadMachine decodes the machine section of the configuration and applies
// defaults. Without a config file the built-in defaults are used.
func loadMachine(v *viper.Viper) (*config.Machine, error) {
	cfg := config.Default()
	if v.IsSet("machine") {
		cfg = &config.Machine{}
		if err := v.UnmarshalKey("machine", cfg); err != nil {
			return nil, fmt.Errorf("failed to decode machine config: %w", err)
		}
	}
	if err := config.Finalize(cfg); err != nil {
		return nil, fmt.Errorf("invalid machine config: %w", err)
	}
	return cfg, nil
}
