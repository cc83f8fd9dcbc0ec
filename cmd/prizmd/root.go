// Package prizmd is the command-line entry point: it wires the cobra
// command tree (serve/doctor/migrate/version) over internal/runtimectx and
// internal/gatewayhttp. This module is single-tenant with no channel
// integrations or managed-mode/onboarding concerns.
package prizmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X github.com/prizm-dev/prizm/cmd/prizmd.Version=v1.0.0"
var Version = "dev"

const protocolVersion = 1

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "prizmd",
	Short: "prizmd — local-first agent workspace server",
	Long:  "prizmd mediates between chat/editor clients and LLM providers: it runs agent sessions, background sub-sessions, workflows, and terminals behind a local HTTP/WebSocket gateway.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config.json or $PRIZM_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("prizmd %s (protocol %d)\n", Version, protocolVersion)
		},
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("PRIZM_CONFIG"); v != "" {
		return v
	}
	return "config.json"
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
