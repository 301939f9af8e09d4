package config

import "time"

// Config is the root configuration for a botstream instance.
type Config struct {
	Backend Backend `yaml:"backend"`
	Session Session `yaml:"session"`
	Stream  Stream  `yaml:"stream"`
	Poller  Poller  `yaml:"poller"`
	Journal Journal `yaml:"journal"`
	Watch   Watch   `yaml:"watch"`
	Health  Health  `yaml:"health"`
}

// Backend holds dashboard-backend API settings. BaseURL keeps its original
// http/https scheme; the stream package derives the ws/wss endpoint from it.
type Backend struct {
	BaseURL    string        `yaml:"base_url"`
	StreamPath string        `yaml:"stream_path"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// Session holds auth-provider settings. When Token is set it is used as-is;
// otherwise a token is fetched from the provider with the credentials below.
type Session struct {
	URL      string        `yaml:"url"`      // Auth provider base URL
	APIKey   string        `yaml:"api_key"`  // Provider project key (sent as apikey header)
	Email    string        `yaml:"email"`    // Password-grant credentials
	Password string        `yaml:"password"` //
	Token    string        `yaml:"token"`    // Pre-issued bearer token (skips the provider)
	Timeout  time.Duration `yaml:"timeout"`
}

// Stream holds connection manager and reconnect policy settings.
type Stream struct {
	ConnectTimeout     time.Duration `yaml:"connect_timeout"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	PongTimeout        time.Duration `yaml:"pong_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	StableReset        time.Duration `yaml:"stable_reset"` // Uptime after which backoff resets
	BufferSize         int           `yaml:"buffer_size"`  // Per-subscriber delivery buffer
}

// Poller holds REST fallback poller settings.
type Poller struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Journal holds the optional Postgres journal sink settings.
type Journal struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	DB            DB            `yaml:"db"`
}

// DB holds a single Postgres connection.
type DB struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Watch lists the symbols the price board displays. Updates for symbols not
// listed here are dropped at reconciliation, never auto-inserted.
type Watch struct {
	Symbols []string `yaml:"symbols"`
}

// Health holds the HTTP health endpoint settings.
type Health struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
