// main is the entry point of the employees application.
//
// COMMANDS:
//
//	employees serve --config=config/local.yaml
//	employees user add --name "Admin" --email admin@example.com
//
// The config path may also come from CONFIG_PATH.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aanand-mishra/employees-app/internal/config"
	"github.com/aanand-mishra/employees-app/internal/storage"
	"github.com/aanand-mishra/employees-app/internal/storage/postgres"
	"github.com/aanand-mishra/employees-app/internal/storage/sqlite"
)

var configPath string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:           "employees",
	Short:         "Employee records: list, create, edit and delete",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config (or set CONFIG_PATH)")

	userCmd.AddCommand(userAddCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(userCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves --config / CONFIG_PATH and loads the file.
func loadConfig() (*config.Config, error) {
	path, err := config.ResolvePath(configPath)
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// openStorage returns the store selected by storage.driver. Callers only
// see the storage.Storage interface.
func openStorage(cfg *config.Config, log *slog.Logger) (storage.Storage, error) {
	if cfg.Storage.Driver == config.DriverPostgres {
		pg, err := postgres.New(cfg, log)
		if err != nil {
			return nil, err
		}
		log.Info("using postgres storage")
		return pg, nil
	}

	lite, err := sqlite.New(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("using sqlite storage", slog.String("path", cfg.Storage.Path))
	return lite, nil
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}
