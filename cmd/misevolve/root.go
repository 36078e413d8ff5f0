package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftlab/misevolve/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
}

var rootCmd = &cobra.Command{
	Use:   "misevolve",
	Short: "Controlled study of reward-driven drift in a service agent",
	Long: "Misevolve runs a customer-service agent inside an instrumented\n" +
		"feedback loop, tracks how its behavior drifts under a chosen reward\n" +
		"scheme, and optionally corrects unsafe turns through a safety sentry.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", "", "Path to YAML config (optional)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.Version = version
}

// loadConfig resolves the effective configuration for a subcommand.
func loadConfig() (config.Config, error) {
	if rootFlags.configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
