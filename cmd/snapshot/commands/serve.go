package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only snapshot HTTP API",
	Long:  `Starts the C6 boundary HTTP server (GET /snapshot/{asof}, GET /health). Never triggers a pipeline run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		application, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer application.cleanup()

		if servePort != "" {
			application.cfg.Port = servePort
		}

		server := application.boundaryServer()

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-sigCh:
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "HTTP port; overrides the configured default")
	rootCmd.AddCommand(serveCmd)
}
