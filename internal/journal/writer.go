package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/botstream/internal/classify"
	"github.com/rickgao/botstream/internal/dispatch"
)

// Config holds batching settings.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultConfig returns the standard journal settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: 5 * time.Second,
	}
}

// Metrics holds journal counters.
type Metrics struct {
	Inserts int64
	Errors  int64
	Flushes int64
}

// priceRow is one row of the price_updates table.
type priceRow struct {
	Symbol     string
	Price      float64
	ServerTs   time.Time // Zero when the frame carried no timestamp
	ReceivedAt time.Time
}

// rawRow is one row of the raw_frames table.
type rawRow struct {
	Payload    []byte
	ReceivedAt time.Time
}

// Writer journals stream messages to Postgres.
type Writer struct {
	cfg    Config
	logger *slog.Logger

	sub *dispatch.Subscription
	db  *pgxpool.Pool

	batchMu     sync.Mutex
	prices      []priceRow
	raws        []rawRow
	flushTicker *time.Ticker
	metrics     Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWriter creates a journal writer consuming sub.
func NewWriter(cfg Config, sub *dispatch.Subscription, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}
	return &Writer{
		cfg:    cfg,
		logger: logger,
		sub:    sub,
		db:     db,
		prices: make([]priceRow, 0, cfg.BatchSize),
		raws:   make([]rawRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming messages and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer and performs a final flush.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal writer")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("journal writer stopped")
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
	}

	// The writer's own context is cancelled by now; the final flush runs on
	// the caller's so pending rows still reach the database.
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads classified messages and accumulates batches.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case msg, ok := <-w.sub.Messages():
			if !ok {
				return
			}
			w.handleMessage(w.ctx, msg)
		}
	}
}

// flushLoop periodically flushes the batches.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// handleMessage adds a message to the appropriate batch. Price updates and raw
// frames are journaled; bot-status snapshots and other frames are transient
// display state and are not.
func (w *Writer) handleMessage(ctx context.Context, msg classify.Message) {
	w.batchMu.Lock()
	switch msg.Kind {
	case classify.KindPrice:
		w.prices = append(w.prices, priceRow{
			Symbol:     msg.Price.Symbol,
			Price:      msg.Price.Price,
			ServerTs:   msg.Price.Timestamp,
			ReceivedAt: msg.Price.ReceivedAt,
		})
	case classify.KindRaw:
		w.raws = append(w.raws, rawRow{
			Payload:    msg.Raw,
			ReceivedAt: msg.ReceivedAt,
		})
	default:
		w.batchMu.Unlock()
		return
	}
	shouldFlush := len(w.prices)+len(w.raws) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(ctx)
	}
}

// flush writes the current batches to the database.
func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.prices) == 0 && len(w.raws) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of the current batches
	prices := w.prices
	raws := w.raws
	w.prices = make([]priceRow, 0, w.cfg.BatchSize)
	w.raws = make([]rawRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	if err := w.batchInsert(ctx, prices, raws); err != nil {
		w.logger.Error("journal batch insert failed",
			"error", err,
			"prices", len(prices),
			"raws", len(raws),
		)
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(prices) + len(raws))
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed journal",
		"prices", len(prices),
		"raws", len(raws),
		"duration", time.Since(start),
	)
}

// batchInsert writes both row kinds in a single pgx batch round trip.
func (w *Writer) batchInsert(ctx context.Context, prices []priceRow, raws []rawRow) error {
	batch := &pgx.Batch{}
	for _, r := range prices {
		var serverTs any
		if !r.ServerTs.IsZero() {
			serverTs = r.ServerTs
		}
		batch.Queue(`
			INSERT INTO price_updates (symbol, price, server_ts, received_at)
			VALUES ($1, $2, $3, $4)
		`, r.Symbol, r.Price, serverTs, r.ReceivedAt)
	}
	for _, r := range raws {
		batch.Queue(`
			INSERT INTO raw_frames (payload, received_at)
			VALUES ($1, $2)
		`, r.Payload, r.ReceivedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(prices)+len(raws); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}
