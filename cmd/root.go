package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/HaiFongPan/fmbot/internal/config"
)

var (
	cfgFile      string
	envFile      string
	verbose      bool
	quiet        bool
	globalConfig *config.Config
)

// logDir receives logs while the interactive console owns the terminal
const logDir = "/tmp/fmbot"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fmbot",
	Short: "A chat bot for managing Filemoon folders and remote uploads",
	Long: `fmbot is a chat bot for the Filemoon video hosting API. Browse folders,
list and share file links, rename or delete folders and follow remote uploads
from an interactive console, over SSH, or through an HTTP gateway.

Configuration comes from TOML files, FMBOT_* environment variables (a local
.env file is loaded first) and CLI flags.

Example usage:
  fmbot                          # Interactive console
  fmbot serve                    # HTTP gateway (and SSH console if enabled)
  fmbot folders
  fmbot upload https://example.com/video.mp4 --folder 42
  fmbot delete 42`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// When called without subcommands, directly enter the console
		return runConsole(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Assigned here rather than in the literal: the hook refers to rootCmd,
	// which would otherwise be an initialization cycle.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// the console draws on the terminal, keep logs away from it
		return initConfig(cmd == rootCmd || cmd == consoleCmd)
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.toml or ~/.fmbot/config.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode")
}

// initConfig loads the .env file, then reads in config file and ENV variables
func initConfig(logToFile bool) error {
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	var err error
	globalConfig, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Configure logging
	setupLogging(logToFile)

	return nil
}

// loadEnvFile loads path into the environment. Variables that are already
// set win. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logrus.Debugf("No env file found at %s", path)
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// setupLogging configures the global logger based on config and flags
func setupLogging(logToFile bool) {
	// Set log level
	level := globalConfig.Log.Level
	if verbose {
		level = "debug"
	} else if quiet {
		level = "error"
	}

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("Invalid log level %s, using info", level)
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)

	if logToFile {
		// Redirect all logs to file to prevent UI interference
		if err := os.MkdirAll(logDir, 0755); err != nil {
			// Fallback to stderr if can't create log directory
			logrus.Warnf("Failed to create log directory %s: %v", logDir, err)
		} else {
			logFile := filepath.Join(logDir, "app.log")
			file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				logrus.Warnf("Failed to open log file %s: %v", logFile, err)
			} else {
				logrus.SetOutput(file)
			}
		}
	}

	// Set log format
	if globalConfig.Log.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: quiet,
			FullTimestamp:    verbose,
		})
	}
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return globalConfig
}
