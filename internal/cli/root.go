// Package cli defines the gostt-prompt command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chaz8081/gostt-prompt/internal/config"
)

// env carries what every command needs once flags are parsed.
type env struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd builds the root command and its subcommands.
func NewRootCmd() *cobra.Command {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:   "gostt-prompt",
		Short: "Dictate AI prompts with push-to-talk speech recognition",
		Long: "gostt-prompt records speech while a hotkey is active, transcribes it locally with whisper.cpp,\n" +
			"and types the text into the focused application or merges it with files into a prompt document.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&e.configPath, "config", "", "path to config file (default: ~/.config/gostt-prompt/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRunCmd(e))
	rootCmd.AddCommand(newTranscribeCmd(e))
	rootCmd.AddCommand(newPackCmd(e))
	rootCmd.AddCommand(newDevicesCmd(e))
	rootCmd.AddCommand(newDownloadModelCmd(e))
	rootCmd.AddCommand(newInitCmd(e))

	return rootCmd
}

// setup loads and validates the config and installs the logger.
func (e *env) setup(stderr io.Writer) error {
	e.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: config.ParseLogLevel(e.logLevel)}))

	cfg, err := loadConfig(e.configPath, e.logger)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if e.logLevel != "" {
		cfg.LogLevel = e.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	e.cfg = cfg

	e.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: config.ParseLogLevel(cfg.LogLevel)}))
	slog.SetDefault(e.logger)
	return nil
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		logger.Debug("config loaded", "path", defaultPath)
		return cfg, nil
	}

	logger.Debug("no config file found, using defaults")
	return config.Default(), nil
}
