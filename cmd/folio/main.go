package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/app"
	"github.com/ternarybob/folio/internal/common"
)

var (
	configFiles []string
	logLevel    string

	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Render paywalled articles with an authenticated browser session",
	Long: `Folio logs in to a paywalled site once, keeps the browser session, and
renders every article of a target list in a real browser, writing each
page's markup to an indexed file for offline processing.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	defer common.RecoverWithCrashFile()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup runs the startup sequence shared by every command:
// config (defaults -> files -> env) -> flag overrides -> logger -> banner
func setup(cmd *cobra.Command, args []string) error {
	if cmd == versionCmd {
		return nil
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("folio.toml"); err == nil {
			configFiles = append(configFiles, "folio.toml")
		} else if _, err := os.Stat("deployments/local/folio.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/folio.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		common.GetLogger().Error().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		return err
	}

	flags := common.FlagOverrides{LogLevel: logLevel}
	if cmd == crawlCmd {
		flags = crawlOverrides(cmd)
	}
	common.ApplyFlagOverrides(config, flags)

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger = common.SetupLogger(config)

	crashDir := ""
	if config.Logging.FilePath != "" {
		crashDir = filepath.Dir(config.Logging.FilePath)
	}
	common.InstallCrashHandler(crashDir, common.NewCrashContext(cmd.CommandPath(), configFiles, config))

	common.PrintBanner(common.GetVersion())

	logger.Debug().
		Strs("config_files", configFiles).
		Str("site", config.SiteIdentity()).
		Str("session_backend", config.Session.Backend).
		Str("log_level", config.Logging.Level).
		Msg("Configuration loaded")

	return nil
}

// newApp builds the application for a command
func newApp(opts ...app.Option) (*app.App, error) {
	application, err := app.New(config, logger, opts...)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		return nil, err
	}
	return application, nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM so the browser is released before exit
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
