package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/botstream/internal/classify"
	"github.com/rickgao/botstream/internal/dispatch"
	"github.com/rickgao/botstream/internal/session"
)

// Manager owns at most one transport connection to the update stream. It
// exposes the connection state, performs the post-connect auth handshake, and
// publishes every inbound frame, classified, into the dispatcher.
//
// Connect and Disconnect give one-shot control; Run supervises the connection
// with the reconnect policy until its context is cancelled.
type Manager struct {
	cfg        Config
	provider   session.Provider
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger

	mu        sync.Mutex
	status    Status
	lastError error
	client    Client

	// gen identifies the current connection attempt. A reader whose gen no
	// longer matches is detached: its frames and errors are discarded.
	gen uint64
}

// NewManager creates a Manager publishing into d. A nil provider behaves as an
// empty session (unauthenticated).
func NewManager(cfg Config, provider session.Provider, d *dispatch.Dispatcher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		provider = session.Static("")
	}
	return &Manager{
		cfg:        cfg.withDefaults(),
		provider:   provider,
		dispatcher: d,
		logger:     logger,
		status:     StatusIdle,
	}
}

// Status returns the observable connection state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// LastError returns the most recent transport or handshake failure. It is
// cleared when a new Connect begins.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// Endpoint returns the configured stream URL.
func (m *Manager) Endpoint() string {
	return m.cfg.Endpoint
}

// Connect establishes the transport and performs the auth handshake. While a
// connection is open or in flight it is a logged no-op. A fresh attempt clears
// the last error and the dispatcher's latest-message slot before dialing.
func (m *Manager) Connect(ctx context.Context) error {
	_, err := m.connect(ctx)
	return err
}

// connect is Connect plus a channel that closes when this connection goes
// down, for the Run supervision loop. A nil channel with a nil error means
// the call was an idempotent no-op.
func (m *Manager) connect(ctx context.Context) (<-chan struct{}, error) {
	m.mu.Lock()
	if m.status == StatusOpen || m.status == StatusConnecting {
		status := m.status
		m.mu.Unlock()
		m.logger.Info("connect ignored, connection already active", "status", status)
		return nil, nil
	}
	m.status = StatusConnecting
	m.lastError = nil
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	// A new session must not surface the previous session's data.
	m.dispatcher.Reset()

	cl := NewClient(ClientConfig{
		URL:          m.cfg.Endpoint,
		PingInterval: m.cfg.PingInterval,
		PongTimeout:  m.cfg.PongTimeout,
		WriteTimeout: m.cfg.WriteTimeout,
		BufferSize:   m.cfg.BufferSize,
	}, m.logger)

	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	err := cl.Connect(dialCtx)
	cancel()
	if err != nil {
		err = fmt.Errorf("dial %s: %w", m.cfg.Endpoint, err)
		m.fail(gen, err)
		return nil, err
	}

	m.mu.Lock()
	if m.gen != gen {
		// Disconnect raced the dial.
		m.mu.Unlock()
		cl.Close()
		return nil, nil
	}
	m.client = cl
	m.status = StatusOpen
	m.mu.Unlock()

	// The reader starts before the handshake: inbound frames are classified
	// and delivered regardless of handshake progress. Only outbound traffic
	// waits for the auth frame.
	down := make(chan struct{})
	go m.readLoop(gen, cl, down)

	if err := m.authenticate(ctx, cl); err != nil {
		m.fail(gen, err)
		cl.Close()
		return nil, err
	}

	return down, nil
}

// authenticate fetches the session token and sends the single auth frame.
// An empty token means no active session: proceed unauthenticated and let the
// server decide what an anonymous client may see.
func (m *Manager) authenticate(ctx context.Context, cl Client) error {
	hctx, cancel := context.WithTimeout(ctx, m.cfg.HandshakeTimeout)
	defer cancel()

	token, err := m.provider.Token(hctx)
	if err != nil {
		return fmt.Errorf("fetch session token: %w", err)
	}

	if token == "" {
		m.logger.Info("no active session, continuing unauthenticated")
		return nil
	}

	frame, err := json.Marshal(authFrame{Type: "auth", Token: token})
	if err != nil {
		return fmt.Errorf("marshal auth frame: %w", err)
	}
	if err := cl.Send(frame); err != nil {
		return fmt.Errorf("send auth frame: %w", err)
	}

	m.logger.Debug("auth frame sent")
	return nil
}

// Disconnect closes the transport and detaches the reader. Frames the socket
// object produces after this point are discarded. Status becomes idle.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	cl := m.client
	m.client = nil
	m.gen++
	m.status = StatusIdle
	m.mu.Unlock()

	if cl != nil {
		cl.Close()
	}
	m.logger.Info("stream disconnected")
}

// fail records a terminal error for the given attempt and detaches its reader.
// Stale attempts are ignored.
func (m *Manager) fail(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return
	}
	m.gen++
	m.status = StatusErrored
	m.lastError = err
	m.client = nil
}

// readLoop consumes one connection's frames and errors until the connection
// dies or the manager detaches it.
func (m *Manager) readLoop(gen uint64, cl Client, down chan struct{}) {
	defer close(down)

	for {
		select {
		case err := <-cl.Errors():
			m.mu.Lock()
			if m.gen != gen {
				m.mu.Unlock()
				return
			}
			m.gen++
			m.client = nil
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				// Orderly close is not a failure; the latest message
				// stays available.
				m.status = StatusClosed
			} else {
				m.status = StatusErrored
				m.lastError = err
			}
			m.mu.Unlock()

			m.logger.Warn("stream connection down", "error", err)
			cl.Close()
			return

		case msg := <-cl.Messages():
			m.mu.Lock()
			stale := m.gen != gen
			m.mu.Unlock()
			if stale {
				return
			}
			m.dispatcher.Publish(classify.Classify(msg.Data, msg.ReceivedAt))
		}
	}
}

// Run supervises the connection until ctx is cancelled: dial and authenticate,
// wait for the connection to die, back off with jitter, repeat. Each attempt
// performs the full open and authenticate sequence. The backoff resets after
// the connection stays up for the stable-reset window.
func (m *Manager) Run(ctx context.Context) error {
	delay := m.cfg.ReconnectBaseDelay

	for {
		start := time.Now()
		down, err := m.connect(ctx)

		if err == nil && down == nil {
			// Another caller already holds the connection; check back later.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.cfg.ReconnectBaseDelay):
			}
			continue
		}

		if err == nil {
			m.logger.Info("stream connected", "endpoint", m.cfg.Endpoint)

			select {
			case <-ctx.Done():
				m.Disconnect()
				return ctx.Err()
			case <-down:
			}

			if time.Since(start) >= m.cfg.StableReset {
				delay = m.cfg.ReconnectBaseDelay
			}
		}

		wait := withJitter(delay)
		m.logger.Warn("stream down, reconnecting",
			"error", m.LastError(),
			"backoff", wait,
		)

		select {
		case <-ctx.Done():
			m.Disconnect()
			return ctx.Err()
		case <-time.After(wait):
		}

		delay *= 2
		if delay > m.cfg.ReconnectMaxDelay {
			delay = m.cfg.ReconnectMaxDelay
		}
	}
}

// withJitter spreads a delay over (0.5x, 1.5x) so a fleet of clients does not
// reconnect in lockstep.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d/2 + time.Duration(rand.Int63n(int64(d)))
}
