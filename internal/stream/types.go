package stream

import (
	"errors"
	"time"
)

// Status is the observable connection state.
type Status string

const (
	// StatusIdle means no connection exists and none is being attempted.
	StatusIdle Status = "idle"
	// StatusConnecting means a dial or handshake is in flight.
	StatusConnecting Status = "connecting"
	// StatusOpen means the transport is established.
	StatusOpen Status = "open"
	// StatusClosed means the transport closed normally.
	StatusClosed Status = "closed"
	// StatusErrored means the transport or handshake failed; LastError has the cause.
	StatusErrored Status = "errored"
)

var (
	// ErrNotConnected is returned by Send when no transport is established.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyClosed is returned by Connect on a closed client.
	ErrAlreadyClosed = errors.New("client already closed")

	// ErrStaleConnection is reported when no pong arrives within the
	// configured window.
	ErrStaleConnection = errors.New("stale connection: no pong received")
)

// TimestampedMessage is a raw inbound frame with its local receive time.
type TimestampedMessage struct {
	Data       []byte
	ReceivedAt time.Time
}

// ClientConfig configures a single transport connection.
type ClientConfig struct {
	URL          string
	PingInterval time.Duration // How often to send ping control frames
	PongTimeout  time.Duration // Liveness window; exceeded → ErrStaleConnection
	WriteTimeout time.Duration
	BufferSize   int // Inbound frame buffer
}

// Config configures a Manager.
type Config struct {
	Endpoint string // Full ws(s):// URL, see DeriveEndpoint

	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration // Bound on the session fetch + auth frame
	PingInterval     time.Duration
	PongTimeout      time.Duration
	WriteTimeout     time.Duration

	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
	StableReset        time.Duration // Uptime after which backoff resets

	BufferSize int
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.PingInterval == 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.PongTimeout == 0 {
		c.PongTimeout = 90 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = time.Second
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = 60 * time.Second
	}
	if c.StableReset == 0 {
		c.StableReset = 30 * time.Second
	}
	if c.BufferSize == 0 {
		c.BufferSize = 256
	}
	return c
}

// authFrame is the single outbound handshake frame.
type authFrame struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}
