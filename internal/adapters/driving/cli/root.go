package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/slackpanel/internal/adapters/driven/config/file"
	"github.com/custodia-labs/slackpanel/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool
	logFormat  string
	ephemeral  bool
	noValidate bool
)

// cfg is the configuration loaded before each command.
var cfg *file.Config

// app holds the wired services. Tests preset it.
var app *App

var rootCmd = &cobra.Command{
	Use:   "slackpanel",
	Short: "Ship Slack workspace analytics to Mixpanel",
	Long: `slackpanel extracts daily member and channel analytics from Slack,
stores them as compressed day files and loads them into Mixpanel as
events, user profiles and group profiles.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default $SLACKPANEL_CONFIG or ~/.slackpanel/config.toml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&logFormat, "log-format", "", "log format: text or json")
	flags.BoolVar(&ephemeral, "ephemeral", false, "keep run history in memory instead of the database")
	flags.BoolVar(&noValidate, "no-validate", false, "skip the startup credential check")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetApp injects pre-wired services, bypassing configuration wiring.
func SetApp(a *App) {
	app = a
}

// Execute runs the root command and releases wired resources.
func Execute(ctx context.Context) error {
	defer func() {
		if app != nil {
			if err := app.Close(); err != nil {
				logger.Warn("closing resources: %v", err)
			}
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig(_ *cobra.Command, _ []string) error {
	path, err := file.ResolvePath(configPath)
	if err != nil {
		return err
	}
	loaded, err := file.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg = loaded

	logger.SetVerbose(verbose || cfg.Log.Verbose)
	format := cfg.Log.Format
	if logFormat != "" {
		format = logFormat
	}
	logger.SetFormat(format)
	logger.Debug("config: %s (environment %s)", path, cfg.Environment)
	return nil
}

// appFor returns the shared App, wiring it from the loaded config on first use.
func appFor(cmd *cobra.Command) (*App, error) {
	if app != nil {
		return app, nil
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	a, err := Wire(cmd.Context(), cfg, WireOptions{
		Ephemeral:    ephemeral,
		SkipValidate: noValidate,
	})
	if err != nil {
		return nil, err
	}
	app = a
	return app, nil
}
