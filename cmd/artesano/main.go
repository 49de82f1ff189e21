// Command artesano runs the El Artesano payments backend and its maintenance tasks.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nikolayk812/artesano/internal/config"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "artesano",
		Short:         "El Artesano payments backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before the environment")

	load := func() (config.Config, *slog.Logger, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return config.Config{}, nil, err
		}
		return cfg, newLogger(cfg), nil
	}

	rootCmd.AddCommand(serveCmd(load))
	rootCmd.AddCommand(migrateCmd(load))
	rootCmd.AddCommand(securityEventsCmd(load))
	rootCmd.AddCommand(catalogCmd(load))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type loader func() (config.Config, *slog.Logger, error)

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Production() {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	log := slog.New(handler).With("app", "artesano", "env", cfg.AppEnv)
	slog.SetDefault(log)

	return log
}
