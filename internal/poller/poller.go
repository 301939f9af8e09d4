package poller

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/botstream/internal/api"
	"github.com/rickgao/botstream/internal/classify"
	"github.com/rickgao/botstream/internal/dispatch"
	"github.com/rickgao/botstream/internal/model"
	"github.com/rickgao/botstream/internal/stream"
)

// StreamState reports the connection state the poller gates on.
type StreamState interface {
	Status() stream.Status
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll interval (default: 30s)
	Timeout  time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// Poller fetches watched-symbol prices over REST while the stream is not open
// and injects them into the dispatcher as synthetic price updates.
type Poller struct {
	cfg        Config
	client     *api.Client
	state      StreamState
	dispatcher *dispatch.Dispatcher
	symbols    []string
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Poller for the given watch list.
func New(cfg Config, client *api.Client, state StreamState, d *dispatch.Dispatcher, symbols []string, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Poller{
		cfg:        cfg,
		client:     client,
		state:      state,
		dispatcher: d,
		symbols:    symbols,
		logger:     logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("price poller started",
		"interval", p.cfg.Interval,
		"symbols", len(p.symbols),
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("price poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main polling loop. The first poll fires immediately so the board
// has prices before the stream's first update lands.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.pollAll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollAll()
		}
	}
}

// pollAll fetches every watched symbol, unless the stream is open and already
// delivering fresher data than a poll would.
func (p *Poller) pollAll() {
	if p.state != nil && p.state.Status() == stream.StatusOpen {
		p.logger.Debug("stream open, skipping poll cycle")
		return
	}

	if len(p.symbols) == 0 {
		return
	}

	start := time.Now()
	var fetched, errors atomic.Int64

	var wg sync.WaitGroup
	for _, symbol := range p.symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			if err := p.pollSymbol(symbol); err != nil {
				p.logger.Warn("failed to poll price",
					"symbol", symbol,
					"err", err,
				)
				errors.Add(1)
				return
			}
			fetched.Add(1)
		}(symbol)
	}
	wg.Wait()

	p.logger.Info("poll cycle complete",
		"symbols", len(p.symbols),
		"fetched", fetched.Load(),
		"errors", errors.Load(),
		"duration", time.Since(start),
	)
}

// pollSymbol fetches one symbol and publishes a synthetic update.
func (p *Poller) pollSymbol(symbol string) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	price, err := p.client.GetSymbolPrice(ctx, symbol)
	if err != nil {
		return err
	}

	p.dispatcher.Publish(syntheticUpdate(*price, time.Now()))
	return nil
}

// syntheticUpdate wraps a REST price response as a classified message, so
// downstream consumers cannot tell a poll from a stream tick.
func syntheticUpdate(sp model.SymbolPrice, receivedAt time.Time) classify.Message {
	raw, _ := json.Marshal(map[string]any{
		"type":   "price_update",
		"symbol": sp.Symbol,
		"price":  sp.Price,
	})
	return classify.Message{
		Kind:       classify.KindPrice,
		Raw:        raw,
		ReceivedAt: receivedAt,
		Price: &model.PriceUpdate{
			Symbol:     sp.Symbol,
			Price:      sp.Price,
			ReceivedAt: receivedAt,
		},
	}
}
