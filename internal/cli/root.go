// Package cli defines the cobra commands of the retype binary.
package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/retype/internal/config"
	"github.com/example/retype/internal/session"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "retype",
	Short: "Retype-to-learn word count tracker",
	Long: `retype serves content sets for retyping practice and keeps daily,
lifetime and weekly word counts in a local cache reconciled with a
remote store.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(redeemCmd)
}

// openSession loads the configuration and opens a session on it
func openSession() (*session.Session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return session.Open(cfg, log.Default())
}
