package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arran4/chat2png"
	"github.com/arran4/chat2png/internal/metrics"
	"github.com/arran4/chat2png/internal/preview"
	"github.com/arran4/chat2png/internal/server"
	"github.com/arran4/chat2png/internal/store"
	apperrors "github.com/arran4/chat2png/pkg/errors"
	"github.com/arran4/chat2png/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve exposes exports and stored conversations over HTTP:

  POST /api/v1/exports?mode=viewport|full     conversation JSON in, PNG out
  POST /api/v1/media                          image upload to data URL
  /api/v1/conversations[/:id[/export|/preview.html]]
  GET  /health, GET /metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "server host (overrides config)")
	serveCmd.Flags().Int("port", 0, "server port (overrides config)")
	serveCmd.Flags().Bool("debug", false, "enable debug mode")
}

func runServe(cmd *cobra.Command, args []string) error {
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Server.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.Default()
	}

	opts := chat2png.OptionsFromConfig(cfg, m)
	opts.Badge = preview.DefaultBadge
	r, err := chat2png.NewRenderer(opts)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeConfigInvalid, "raster backend", err)
	}

	logger.Info("Starting chat2png",
		zap.String("version", Version),
		zap.String("backend", cfg.Raster.Backend),
		zap.String("database", cfg.Database.Path),
		zap.Bool("metrics", m != nil),
		zap.Bool("tracing", tel != nil && tel.IsEnabled()),
	)
	return server.New(cfg, r, st, m).Run(cmd.Context())
}
