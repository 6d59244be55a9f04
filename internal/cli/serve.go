package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fmuoria/resumepro-agent/internal/api"
	"github.com/fmuoria/resumepro-agent/internal/history"
)

//nolint:gochecknoglobals // Cobra boilerplate
var port string

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API. Each client keeps its own history, identified by the
X-Session-ID header; a new id is issued when the header is missing.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&port, "port", "", "Listen port (overrides config and PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, analyzer, err := setup(ctx)
	if err != nil {
		return err
	}
	defer analyzer.Close()

	if port != "" {
		cfg.Port = port
	}

	server := api.NewServer(analyzer, history.NewStore())
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Starting ResumePro Agent on port %s...\n", cfg.Port)
	fmt.Fprintf(out, "Endpoints:\n")
	fmt.Fprintf(out, "  POST /analyze - Analyze an uploaded resume\n")
	fmt.Fprintf(out, "  GET /history - List this session's analyses\n")
	fmt.Fprintf(out, "  GET /history/export - Download the history as Excel\n")

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Printf("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout())
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
