package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Stream Types
// -----------------------------------------------------------------------------

// PriceUpdate is a single-symbol price tick from the update stream
// (or synthesized from a REST poll while the stream is down).
type PriceUpdate struct {
	Symbol     string    // Trading symbol (e.g., "BTCUSDT")
	Price      float64   // Current price; always finite
	Timestamp  time.Time // Server timestamp; zero when the frame omitted it
	ReceivedAt time.Time // Local receive timestamp
}

// BotStatusSnapshot is a complete bot-status broadcast. The server always
// sends the full set, so consumers replace rather than merge.
type BotStatusSnapshot struct {
	Statuses   []json.RawMessage // Opaque per-bot records; shape is the consumer's business
	Timestamp  time.Time         // Server timestamp; zero when omitted
	ReceivedAt time.Time         // Local receive timestamp
}

// BotStatus is the commonly-read projection of a per-bot status record.
// Fields beyond these stay in Raw for consumers that need them.
type BotStatus struct {
	BotID     string  `json:"bot_id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Symbol    string  `json:"symbol"`
	IsActive  bool    `json:"is_active"`
	IsRunning bool    `json:"is_running"`
	Position  float64 `json:"current_position_size"`
	PnL       float64 `json:"realized_pnl"`
	Trades    int64   `json:"total_trades"`

	Raw json.RawMessage `json:"-"` // Verbatim record as received
}

// DecodeBotStatus projects an opaque status record into BotStatus.
// Unknown fields are ignored; missing fields are zero-valued.
func DecodeBotStatus(raw json.RawMessage) (BotStatus, error) {
	var s BotStatus
	if err := json.Unmarshal(raw, &s); err != nil {
		return BotStatus{}, err
	}
	s.Raw = raw
	return s, nil
}

// -----------------------------------------------------------------------------
// REST Types
// -----------------------------------------------------------------------------

// BotConfig is a stored bot configuration as returned by the backend API.
type BotConfig struct {
	ID           uuid.UUID      `json:"id"`
	UserID       uuid.UUID      `json:"user_id"`
	Name         string         `json:"name"`
	BotType      string         `json:"bot_type"` // "momentum", "grid", "dca"
	Symbol       string         `json:"symbol"`
	ConfigParams map[string]any `json:"config_params"`
	IsActive     bool           `json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// SymbolPrice is the backend's spot-price response.
type SymbolPrice struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// ParseTimestamp parses the backend's ISO-8601 timestamps. The backend emits
// RFC 3339 with offset; bare "Z" form is accepted too. Returns the zero time
// for empty or unparseable input (timestamps are advisory on the stream).
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
