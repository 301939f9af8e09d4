// streamtest connects to the backend's update stream and prints classified
// messages to the console.
// Usage: go run ./cmd/streamtest --config configs/dashd.local.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/botstream/internal/classify"
	"github.com/rickgao/botstream/internal/config"
	"github.com/rickgao/botstream/internal/dispatch"
	"github.com/rickgao/botstream/internal/session"
	"github.com/rickgao/botstream/internal/stream"
)

func main() {
	configPath := flag.String("config", "configs/dashd.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full frame payloads")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	endpoint, err := stream.DeriveEndpoint(cfg.Backend.BaseURL, cfg.Backend.StreamPath)
	if err != nil {
		logger.Error("failed to derive stream endpoint", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var provider session.Provider = session.Static(cfg.Session.Token)
	if cfg.Session.Token == "" && cfg.Session.URL != "" {
		provider = session.NewHTTPProvider(session.Config{
			URL:      cfg.Session.URL,
			APIKey:   cfg.Session.APIKey,
			Email:    cfg.Session.Email,
			Password: cfg.Session.Password,
			Timeout:  cfg.Session.Timeout,
		}, logger)
	}

	dispatcher := dispatch.New(cfg.Stream.BufferSize, logger)
	defer dispatcher.Close()

	manager := stream.NewManager(stream.Config{
		Endpoint:           endpoint,
		ConnectTimeout:     cfg.Stream.ConnectTimeout,
		HandshakeTimeout:   cfg.Stream.HandshakeTimeout,
		PingInterval:       cfg.Stream.PingInterval,
		PongTimeout:        cfg.Stream.PongTimeout,
		WriteTimeout:       cfg.Stream.WriteTimeout,
		ReconnectBaseDelay: cfg.Stream.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Stream.ReconnectMaxDelay,
		StableReset:        cfg.Stream.StableReset,
		BufferSize:         cfg.Stream.BufferSize,
	}, provider, dispatcher, logger)

	sub := dispatcher.Subscribe()
	defer sub.Unsubscribe()

	go manager.Run(ctx)
	go printMessages(ctx, sub, *verbose)

	// Periodic stats line.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := dispatcher.Stats()
				logger.Info("stats",
					"status", manager.Status(),
					"received", stats.Received,
					"delivered", stats.Delivered,
					"dropped", stats.Dropped,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop", "endpoint", endpoint)

	<-ctx.Done()
	logger.Info("shutdown complete")
}

func printMessages(ctx context.Context, sub *dispatch.Subscription, verbose bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			printMessage(msg, verbose)
		}
	}
}

func printMessage(msg classify.Message, verbose bool) {
	if verbose {
		data, _ := json.Marshal(string(msg.Raw))
		fmt.Printf("[%s] %s\n", msg.Kind, data)
		return
	}

	switch msg.Kind {
	case classify.KindPrice:
		fmt.Printf("[PRICE] symbol=%s price=%.8g\n", msg.Price.Symbol, msg.Price.Price)
	case classify.KindBotStatus:
		fmt.Printf("[BOTS] statuses=%d\n", len(msg.BotStatus.Statuses))
	case classify.KindOther:
		fmt.Printf("[OTHER] tag=%q bytes=%d\n", msg.TypeTag(), len(msg.Raw))
	case classify.KindRaw:
		fmt.Printf("[RAW] bytes=%d\n", len(msg.Raw))
	}
}
