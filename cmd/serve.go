package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scormkit/scormkit/internal/config"
	"github.com/scormkit/scormkit/internal/engine"
	"github.com/scormkit/scormkit/internal/fetch"
	"github.com/scormkit/scormkit/internal/logging"
	"github.com/scormkit/scormkit/internal/server"
	"github.com/scormkit/scormkit/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the HTTP API and content server",
	Long: `Starts the scormkit server: the JSON API for processing and
invalidating packages, the public content mount serving extracted files,
a websocket stream of engine events, and a health endpoint.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "server port (overrides config)")
	serveCmd.Flags().String("host", "", "server host (overrides config)")
	serveCmd.Flags().String("workspace", "", "workspace directory (overrides config)")
	bindServeFlags(serveCmd.Flags())

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := fetch.NewArchiveFetcher(cfg.Fetch.Timeout, cfg.Fetch.MaxBytes)
	eng := engine.New(cfg, fetcher, logger)
	defer eng.Close()

	w, err := watcher.New(cfg.Workspace.Dir, eng, logger)
	if err != nil {
		return err
	}
	w.Start(ctx)
	defer w.Stop()

	srv := server.New(cfg, eng, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info(context.Background(), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
