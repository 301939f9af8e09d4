// dashd is the headless dashboard daemon. It holds the backend's realtime
// update stream open, keeps the price board and bot-status panel reconciled,
// optionally journals the stream to Postgres, and serves connection health
// over HTTP.
//
// Usage: dashd --config configs/dashd.local.yaml
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/botstream/internal/api"
	"github.com/rickgao/botstream/internal/config"
	"github.com/rickgao/botstream/internal/database"
	"github.com/rickgao/botstream/internal/dispatch"
	"github.com/rickgao/botstream/internal/journal"
	"github.com/rickgao/botstream/internal/poller"
	"github.com/rickgao/botstream/internal/session"
	"github.com/rickgao/botstream/internal/stream"
	"github.com/rickgao/botstream/internal/version"
	"github.com/rickgao/botstream/internal/view"
)

func main() {
	configPath := flag.String("config", "configs/dashd.local.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting dashd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	endpoint, err := stream.DeriveEndpoint(cfg.Backend.BaseURL, cfg.Backend.StreamPath)
	if err != nil {
		logger.Error("failed to derive stream endpoint", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"backend", cfg.Backend.BaseURL,
		"endpoint", endpoint,
		"symbols", cfg.Watch.Symbols,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := newSessionProvider(cfg.Session, logger)

	apiClient := api.NewClient(
		cfg.Backend.BaseURL,
		provider,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Backend.Timeout),
		api.WithRetries(cfg.Backend.MaxRetries, time.Second),
	)

	registry := stream.NewRegistry(stream.Config{
		ConnectTimeout:     cfg.Stream.ConnectTimeout,
		HandshakeTimeout:   cfg.Stream.HandshakeTimeout,
		PingInterval:       cfg.Stream.PingInterval,
		PongTimeout:        cfg.Stream.PongTimeout,
		WriteTimeout:       cfg.Stream.WriteTimeout,
		ReconnectBaseDelay: cfg.Stream.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Stream.ReconnectMaxDelay,
		StableReset:        cfg.Stream.StableReset,
		BufferSize:         cfg.Stream.BufferSize,
	}, provider, logger)
	defer registry.Close()

	// The daemon is the first subscriber; the registry supervises the shared
	// connection, and the journal and health surfaces ride along on it.
	handle := registry.Subscribe(endpoint)
	defer handle.Close()

	board := view.NewBoard(cfg.Watch.Symbols)
	panel := view.NewPanel(logger)

	// Optional Postgres journal.
	var journalWriter *journal.Writer
	if cfg.Journal.Enabled {
		logger.Info("connecting to journal database",
			"host", cfg.Journal.DB.Host,
			"database", cfg.Journal.DB.Name,
		)
		pool, err := database.Connect(ctx, cfg.Journal.DB)
		if err != nil {
			logger.Error("failed to connect to journal database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		journalWriter = journal.NewWriter(journal.Config{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
		}, handle.Dispatcher().Subscribe(), pool, logger)

		if err := journalWriter.Start(ctx); err != nil {
			logger.Error("failed to start journal writer", "error", err)
			os.Exit(1)
		}
	}

	// Optional REST fallback poller.
	var pricePoller *poller.Poller
	if cfg.Poller.Enabled {
		pricePoller = poller.New(poller.Config{
			Interval: cfg.Poller.Interval,
			Timeout:  cfg.Poller.Timeout,
		}, apiClient, handle, handle.Dispatcher(), board.Symbols(), logger)

		if err := pricePoller.Start(ctx); err != nil {
			logger.Error("failed to start price poller", "error", err)
			os.Exit(1)
		}
	}

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: newHealthHandler(cfg.Health.Path, handle, board, panel),
	}

	g, gctx := errgroup.WithContext(ctx)

	// Reconciliation consumer: applies each classified message to the board
	// and the panel.
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case msg, ok := <-handle.Messages():
				if !ok {
					return nil
				}
				board.Apply(msg)
				panel.Apply(msg)
			}
		}
	})

	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Health.Port, "path", cfg.Health.Path)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	logger.Info("dashd running",
		"health_url", fmt.Sprintf("http://localhost:%d%s", cfg.Health.Port, cfg.Health.Path),
	)

	err = g.Wait()

	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if pricePoller != nil {
		pricePoller.Stop(shutdownCtx)
	}
	if journalWriter != nil {
		journalWriter.Stop(shutdownCtx)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("dashd exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("dashd stopped")
}

// newSessionProvider picks the session source: a pre-issued token wins, then
// the auth provider's password grant, then anonymous.
func newSessionProvider(cfg config.Session, logger *slog.Logger) session.Provider {
	if cfg.Token != "" {
		return session.Static(cfg.Token)
	}
	if cfg.URL != "" {
		return session.NewHTTPProvider(session.Config{
			URL:      cfg.URL,
			APIKey:   cfg.APIKey,
			Email:    cfg.Email,
			Password: cfg.Password,
			Timeout:  cfg.Timeout,
		}, logger)
	}
	logger.Info("no session configured, running unauthenticated")
	return session.Static("")
}

// newHealthHandler serves connection and view state as JSON.
func newHealthHandler(path string, handle *stream.Handle, board *view.Board, panel *view.Panel) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		status := handle.Status()

		health := struct {
			Status     string            `json:"status"`
			LastError  string            `json:"last_error,omitempty"`
			Dispatcher dispatch.Stats    `json:"dispatcher"`
			Board      []view.BoardEntry `json:"board"`
			Bots       int               `json:"bots"`
			BotsAsOf   time.Time         `json:"bots_as_of,omitempty"`
		}{
			Status:     string(status),
			Dispatcher: handle.Dispatcher().Stats(),
			Board:      board.Snapshot(),
			Bots:       len(panel.Snapshot()),
			BotsAsOf:   panel.UpdatedAt(),
		}
		if err := handle.LastError(); err != nil {
			health.LastError = err.Error()
		}

		w.Header().Set("Content-Type", "application/json")
		if status == stream.StatusErrored {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
