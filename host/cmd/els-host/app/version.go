package app

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"els/protocol"
)

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Protocol  string `json:"protocol"`
	GoVersion string `json:"go"`
	Platform  string `json:"platform"`
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versionInfo{
				Version:   Version,
				Commit:    Commit,
				Protocol:  protocol.Version,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == "json" {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info: %w", err)
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			_, err = fmt.Fprintf(out, "els-host %s (%s) protocol %s %s %s\n",
				info.Version, info.Commit, info.Protocol, info.GoVersion, info.Platform)
			return err
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}
