package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relayroom/relayroom/cli/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "relayctl",
	Short: "RelayRoom CLI",
	Long: `relayctl is the command-line interface for RelayRoom.

Log in to a RelayRoom deployment, inspect the event publisher's health
and metrics, and manually switch between publishing backends.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.relayctl/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "default", "profile to use")
	rootCmd.PersistentFlags().String("output", "table", "output format: table, json")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}
