// Command chat2png renders chat mock-ups to PNG, serves the HTTP API and
// watches conversation files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arran4/chat2png/internal/config"
	apperrors "github.com/arran4/chat2png/pkg/errors"
	"github.com/arran4/chat2png/pkg/logger"
	"github.com/arran4/chat2png/pkg/telemetry"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
	tel *telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "chat2png",
	Short: "Render WhatsApp and Messenger chat mock-ups to PNG",
	Long: `chat2png builds a chat preview from a conversation file and exports it
as a PNG image, either the visible viewport or the full conversation.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// version needs no configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "chat2png %s\n", Version)
		fmt.Fprintf(cmd.OutOrStdout(), "  Build Time: %s\n", BuildTime)
		fmt.Fprintf(cmd.OutOrStdout(), "  Git Commit: %s\n", GitCommit)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: "+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")

	rootCmd.AddCommand(renderCmd, serveCmd, watchCmd, versionCmd)
}

// setup loads the configuration and starts logging and tracing.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadOrDefault(config.DefaultPath)
	}
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeConfigInvalid, "init logger", err)
	}
	tel, err = telemetry.New(cfg.Telemetry)
	if err != nil {
		logger.Warn("Tracing disabled", zap.Error(err))
		tel = nil
	}
	return nil
}

func teardown() {
	if tel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}
	_ = logger.Sync()
}

// exitCode maps configuration errors to ExitCodeConfig and other
// application errors to ExitCodeExport.
func exitCode(err error) int {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return 1
	}
	switch appErr.Code {
	case apperrors.ErrCodeConfigNotFound, apperrors.ErrCodeConfigInvalid, apperrors.ErrCodeConfigParse:
		return apperrors.ExitCodeConfig
	}
	return apperrors.ExitCodeExport
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "chat2png: "+err.Error())
		os.Exit(exitCode(err))
	}
}
