// cmd/tools/seed-refresh/root.go
package main

import (
	"astroscope/internal/common/config"
	"astroscope/internal/common/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	seedPath string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "seed-refresh",
	Short: "Maintain the local NASA lessons corpus",
	Long: `seed-refresh rebuilds the bundled lessons corpus from the live
Lessons Learned search, validates seed files and imports them into Postgres.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&seedPath, "seed", "internal/lessonstore/seed/lessons_seed.json", "seed file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFromFile(cfgFile)
	}
	return config.Load()
}

func newLogger() logger.Logger {
	level := "info"
	if verbose {
		level = "debug"
	}
	return logger.NewStructured(level, "console")
}
