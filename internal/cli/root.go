package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"telequiz/internal/lib/slogcustom"
)

var configPath string

// Execute runs the CLI.
func Execute() error {
	log := slog.New(slogcustom.NewHandler(os.Stdout, slog.LevelDebug))
	slog.SetDefault(log)

	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:   "telequiz",
		Short: "Telegram quiz bot with daily broadcasts and a monthly leaderboard",
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(NewStartCmd(&configPath))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	return cmd
}
