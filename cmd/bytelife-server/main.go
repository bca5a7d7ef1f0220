// Package main is the entry point of the ByteLife settlement server.
// It only wires dependencies together; game rules live under internal/.
package main

import (
	"fmt"
	"os"

	"github.com/MRamiBalles/ByteLife/internal/config"
	"github.com/MRamiBalles/ByteLife/internal/platform/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	profileName string
)

var rootCmd = &cobra.Command{
	Use:   "bytelife-server",
	Short: "ByteLife idle economy server",
	Long:  "ByteLife settles every player's companies, jobs and skill downloads on a fixed tick and serves the game over WebSocket.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON config file")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Preset profile: default, stress or low (ignored with --config)")
}

// loadConfig resolves the preset or file, then applies BYTELIFE_* overrides and validates.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg, err = config.ForProfile(profileName)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(os.Stdout, logger.ParseLevel(cfg.LogLevel), cfg.LogJSON)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
