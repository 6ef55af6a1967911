package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
)

const (
	portFlagName    = "port"
	addressFlagName = "address"
)

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start HTTP API server",
		Action:  cmdStartServer,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  portFlagName,
				Usage: "Port on which the server will listen (default: server.port from config)",
			},
			&cli.StringFlag{
				Name:  addressFlagName,
				Usage: "Interface on which the server will listen",
				Value: "127.0.0.1",
			},
		},
	}
}

func cmdStartServer(ctx context.Context, cmd *cli.Command) error {
	cfg, err := applyFlags(cmd)
	if err != nil {
		return err
	}
	store, err := cfg.openStore(ctx)
	if err != nil {
		return err
	}

	port := cfg.Config.Server.Port
	if cmd.IsSet(portFlagName) {
		port = cmd.Int(portFlagName)
	}
	address := fmt.Sprintf("%s:%d", cmd.String(addressFlagName), port)

	s := &http.Server{
		Addr:           address,
		Handler:        makeRouter(cfg),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("server started", "address", "http://"+address, "store", store.Driver())

	select {
	case <-done:
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("error starting server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func makeRouter(cfg *appConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", healthAPIHandler)
	mux.Handle("GET /metrics", cfg.Metrics.Handler())

	mux.HandleFunc("POST /v1/analyze", analyzeAPIHandler(cfg))
	mux.HandleFunc("GET /v1/runs", listRunsAPIHandler(cfg))
	mux.HandleFunc("GET /v1/runs/{id}", getRunAPIHandler(cfg))
	mux.HandleFunc("DELETE /v1/runs/{id}", deleteRunAPIHandler(cfg))

	return cfg.Metrics.Middleware(mux)
}
