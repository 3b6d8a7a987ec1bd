// Command els-host runs the leadscrew simulator and the telemetry monitor.
package main

import (
	"os"

	"els/host/cmd/els-host/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
