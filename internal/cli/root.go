package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/andjpython/Estacionamento-Free/internal/config"
	"github.com/andjpython/Estacionamento-Free/internal/logging"
)

var (
	flagServer    string
	flagConfig    string
	flagEnvFile   string
	flagStore     string
	flagStorePath string
	flagCSRF      string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	cfg    *config.ClientConfig
	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the estacionamento CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "estacionamento",
		Short: "Estacionamento client: sessions, authenticated calls and exceeded-time alerts",
		Long: "estacionamento logs operators and supervisors into the parking backend, " +
			"makes authenticated calls on their behalf and watches for vehicles over their time limit.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var envFiles []string
			if flagEnvFile != "" {
				envFiles = []string{flagEnvFile}
			}
			loaded, err := config.Load(flagConfig, envFiles...)
			if err != nil {
				return err
			}
			applyFlags(cmd, loaded)
			if err := loaded.Validate(); err != nil {
				return err
			}
			cfg = loaded

			level := logging.ParseLevel(cfg.Log.Level)
			if flagDebug {
				level = slog.LevelDebug
			}
			logger = logging.NewWithWriter(level, logging.ParseFormat(cfg.Log.Format), cmd.ErrOrStderr())
			logger.Debug("config loaded", "server", cfg.Server, "store", cfg.Store.Backend)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", "", "Backend URL (or "+config.EnvPrefix+"SERVER env)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "Path to a .env file (default .env)")
	root.PersistentFlags().StringVar(&flagStore, "store", "", "State store backend (sqlite, redis, memory)")
	root.PersistentFlags().StringVar(&flagStorePath, "store-path", "", "SQLite state database path")
	root.PersistentFlags().StringVar(&flagCSRF, "csrf-token", "", "Anti-forgery token (discovered from the landing page when empty)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newCallCmd(),
		newPollCmd(),
		newWatchCmd(),
		newMockBackendCmd(),
	)

	return root
}

// applyFlags overrides config values with flags the user set explicitly.
func applyFlags(cmd *cobra.Command, c *config.ClientConfig) {
	flags := cmd.Flags()
	if flags.Changed("server") {
		c.Server = flagServer
	}
	if flags.Changed("store") {
		c.Store.Backend = flagStore
	}
	if flags.Changed("store-path") {
		c.Store.Path = flagStorePath
	}
	if flags.Changed("csrf-token") {
		c.CSRFToken = flagCSRF
	}
	if flags.Changed("log-level") {
		c.Log.Level = flagLogLevel
	}
	if flags.Changed("log-format") {
		c.Log.Format = flagLogFormat
	}
}

// printMessage writes the backend's message for env, or a fallback.
func printMessage(cmd *cobra.Command, msg, fallback string) {
	if msg == "" {
		msg = fallback
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
}
