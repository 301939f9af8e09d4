package stream

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rickgao/botstream/internal/classify"
	"github.com/rickgao/botstream/internal/dispatch"
	"github.com/rickgao/botstream/internal/session"
)

// Registry shares one supervised connection per endpoint. Subscribers acquire
// a Handle; the first subscriber to an endpoint opens the connection, later
// ones share it, and the transport closes when the last Handle is closed.
type Registry struct {
	cfg      Config // Template; Endpoint is set per acquisition
	provider session.Provider
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]*sharedConn
}

// sharedConn is one endpoint's connection and its reference count.
type sharedConn struct {
	endpoint   string
	manager    *Manager
	dispatcher *dispatch.Dispatcher
	cancel     context.CancelFunc
	refs       int
	done       chan struct{} // Closed when the supervision loop returns
}

// Handle is one subscriber's share of a connection.
type Handle struct {
	reg  *Registry
	conn *sharedConn
	sub  *dispatch.Subscription
	once sync.Once
}

// NewRegistry creates a registry. cfg.Endpoint is ignored; each acquisition
// names its own endpoint.
func NewRegistry(cfg Config, provider session.Provider, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		cfg:      cfg.withDefaults(),
		provider: provider,
		logger:   logger,
		entries:  make(map[string]*sharedConn),
	}
}

// Subscribe attaches to the endpoint's shared connection, opening it if this
// is the first subscriber.
func (r *Registry) Subscribe(endpoint string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.entries[endpoint]
	if !ok {
		cfg := r.cfg
		cfg.Endpoint = endpoint

		d := dispatch.New(cfg.BufferSize, r.logger)
		mgr := NewManager(cfg, r.provider, d, r.logger.With("endpoint", endpoint))

		// The connection outlives any single subscriber's context; its
		// lifetime is the reference count.
		runCtx, cancel := context.WithCancel(context.Background())
		conn = &sharedConn{
			endpoint:   endpoint,
			manager:    mgr,
			dispatcher: d,
			cancel:     cancel,
			done:       make(chan struct{}),
		}
		r.entries[endpoint] = conn

		go func() {
			defer close(conn.done)
			mgr.Run(runCtx)
		}()

		r.logger.Info("opened shared stream", "endpoint", endpoint)
	}

	conn.refs++
	return &Handle{
		reg:  r,
		conn: conn,
		sub:  conn.dispatcher.Subscribe(),
	}
}

// Close releases all connections regardless of subscriber count.
func (r *Registry) Close() {
	r.mu.Lock()
	conns := make([]*sharedConn, 0, len(r.entries))
	for endpoint, conn := range r.entries {
		conns = append(conns, conn)
		delete(r.entries, endpoint)
	}
	r.mu.Unlock()

	for _, conn := range conns {
		conn.cancel()
		<-conn.done
		conn.dispatcher.Close()
	}
}

// Messages returns this subscriber's delivery channel.
func (h *Handle) Messages() <-chan classify.Message {
	return h.sub.Messages()
}

// Latest returns the shared connection's latest-message slot.
func (h *Handle) Latest() (classify.Message, bool) {
	return h.conn.dispatcher.Latest()
}

// Status returns the shared connection's state.
func (h *Handle) Status() Status {
	return h.conn.manager.Status()
}

// LastError returns the shared connection's most recent failure.
func (h *Handle) LastError() error {
	return h.conn.manager.LastError()
}

// Dispatcher returns the shared connection's dispatcher, for callers that
// need extra subscriptions, stats, or the ability to publish alongside the
// stream. It is owned by the registry and closes when the last Handle does.
func (h *Handle) Dispatcher() *dispatch.Dispatcher {
	return h.conn.dispatcher
}

// Close detaches this subscriber. Other subscribers are unaffected; the
// transport closes only when the last subscriber detaches. Idempotent.
func (h *Handle) Close() {
	h.once.Do(func() {
		h.sub.Unsubscribe()

		h.reg.mu.Lock()
		h.conn.refs--
		last := h.conn.refs == 0
		if last {
			delete(h.reg.entries, h.conn.endpoint)
		}
		h.reg.mu.Unlock()

		if last {
			h.conn.cancel()
			<-h.conn.done
			h.conn.dispatcher.Close()
			h.reg.logger.Info("closed shared stream, last subscriber detached",
				"endpoint", h.conn.endpoint,
			)
		}
	})
}
