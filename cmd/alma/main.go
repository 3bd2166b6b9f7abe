package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/assapir/alma/internal/app"
	"github.com/assapir/alma/internal/config"
	"github.com/assapir/alma/internal/logger"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "alma",
	Short:         "Find and prepare removable storage devices",
	Long:          "Alma lists removable block devices and checks that a target is safe to overwrite before it is unmounted and written to",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(configPath); err != nil {
			return err
		}
		cfg := config.GetConfig()
		if logLevel != "" {
			cfg.Logs.Level = logLevel
		}
		return logger.Init(cfg.Logs)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default "+config.ConfigFile+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.AddCommand(
		app.NewDevicesCommand(),
		app.NewCheckCommand(),
		app.NewUnmountCommand(),
		app.NewStatusCommand(),
		app.NewConfigCommand(&configPath),
	)
}

func main() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
