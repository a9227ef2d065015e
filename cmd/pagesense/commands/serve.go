package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pranavnbapat/pagesense/internal/logger"
	"github.com/pranavnbapat/pagesense/internal/server"
	"github.com/pranavnbapat/pagesense/internal/version"
	"github.com/pranavnbapat/pagesense/pkg/extract"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP extraction service",
	Long: `Serve a small web form and a JSON API for text extraction.

Endpoints:
  GET  /                  HTML form
  GET  /api/extract?url=  extract a URL
  POST /api/extract       extract a URL (JSON or form body)
  GET  /api/health        liveness check

Example:
  pagesense serve --addr :8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("addr", "", "listen address (overrides config)")
	flags.Bool("polite", false, "throttle per-domain and warm up sessions")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		logError("%v", err)
		return err
	}

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if polite, _ := cmd.Flags().GetBool("polite"); polite {
		cfg.Fetch.Polite = true
	}

	extractCfg, err := cfg.ExtractConfig()
	if err != nil {
		logError("%v", err)
		return err
	}

	extractor := extract.New(extractCfg)
	defer func() { _ = extractor.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting pagesense",
		"version", version.String(),
		"addr", cfg.Server.Addr,
		"polite", cfg.Fetch.Polite)

	srv := server.New(extractor)
	if err := srv.Run(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout); err != nil {
		logError("server failed: %v", err)
		return err
	}
	return nil
}
