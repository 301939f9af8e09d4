package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		zero  bool
	}{
		{"rfc3339 with offset", "2025-08-25T10:30:00+00:00", false},
		{"rfc3339 zulu", "2025-08-25T10:30:00Z", false},
		{"fractional seconds", "2025-08-25T10:30:00.123456+00:00", false},
		{"naive datetime", "2025-08-25T10:30:00.123456", false},
		{"empty", "", true},
		{"garbage", "not-a-time", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimestamp(tt.input)
			if got.IsZero() != tt.zero {
				t.Errorf("ParseTimestamp(%q).IsZero() = %v, want %v", tt.input, got.IsZero(), tt.zero)
			}
		})
	}
}

func TestParseTimestamp_Value(t *testing.T) {
	got := ParseTimestamp("2025-08-25T10:30:00Z")
	want := time.Date(2025, 8, 25, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseTimestamp = %v, want %v", got, want)
	}
}

func TestDecodeBotStatus(t *testing.T) {
	raw := json.RawMessage(`{
		"bot_id": "b-1",
		"name": "grid-btc",
		"type": "grid",
		"symbol": "BTCUSDT",
		"is_active": true,
		"is_running": false,
		"current_position_size": 0.5,
		"realized_pnl": 12.25,
		"total_trades": 7,
		"config_params": {"levels": 10}
	}`)

	s, err := DecodeBotStatus(raw)
	if err != nil {
		t.Fatalf("DecodeBotStatus failed: %v", err)
	}

	if s.BotID != "b-1" {
		t.Errorf("BotID = %q, want %q", s.BotID, "b-1")
	}
	if s.Type != "grid" {
		t.Errorf("Type = %q, want %q", s.Type, "grid")
	}
	if !s.IsActive || s.IsRunning {
		t.Errorf("IsActive=%v IsRunning=%v, want true/false", s.IsActive, s.IsRunning)
	}
	if s.PnL != 12.25 {
		t.Errorf("PnL = %v, want 12.25", s.PnL)
	}
	if len(s.Raw) == 0 {
		t.Error("Raw not retained")
	}
}

func TestDecodeBotStatus_Malformed(t *testing.T) {
	if _, err := DecodeBotStatus(json.RawMessage(`[not json`)); err == nil {
		t.Error("expected error for malformed record")
	}
}
