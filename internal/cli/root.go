// Package cli implements the hackweb commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"hackweb/internal/config"
	appLog "hackweb/internal/log"
)

const defaultConfigPath = "/etc/hackweb/config.yaml"

var (
	configPath string
	logLevel   string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "hackweb",
	Short:         "Hackathon website: schedule, announcements and a 2048 break room",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $HACKWEB_CONFIG or "+defaultConfigPath+")")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level: debug, info, warn, error")
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("HACKWEB_CONFIG"); env != "" {
		return env
	}
	return defaultConfigPath
}

// loadConfig loads the config file and applies its logging settings.
func loadConfig() (*config.Config, error) {
	path := getConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)
	appLog.Debug("config loaded", "path", path)
	return cfg, nil
}

func setupLogging(cfg *config.Config) {
	appLog.SetOutput(os.Stderr, cfg.Log.JSON)
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(level))
}
