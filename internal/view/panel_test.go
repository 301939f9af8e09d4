package view

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rickgao/botstream/internal/classify"
	"github.com/rickgao/botstream/internal/model"
)

func TestPanel_SnapshotReplace(t *testing.T) {
	p := NewPanel(nil)
	now := time.Now()

	p.ApplySnapshot(model.BotStatusSnapshot{
		Statuses: []json.RawMessage{
			json.RawMessage(`{"bot_id":"a","name":"one","is_running":true}`),
			json.RawMessage(`{"bot_id":"b","name":"two"}`),
		},
		ReceivedAt: now,
	})

	snap := p.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len(Snapshot) = %d, want 2", len(snap))
	}
	if snap[0].BotID != "a" || !snap[0].IsRunning {
		t.Errorf("snap[0] = %+v", snap[0])
	}

	// The next snapshot replaces wholesale: bot "a" is gone, not merged.
	p.ApplySnapshot(model.BotStatusSnapshot{
		Statuses:   []json.RawMessage{json.RawMessage(`{"bot_id":"c"}`)},
		ReceivedAt: now.Add(time.Second),
	})

	snap = p.Snapshot()
	if len(snap) != 1 || snap[0].BotID != "c" {
		t.Errorf("Snapshot = %+v, want single bot c", snap)
	}
	if !p.UpdatedAt().Equal(now.Add(time.Second)) {
		t.Errorf("UpdatedAt = %v", p.UpdatedAt())
	}
}

func TestPanel_EmptySnapshot(t *testing.T) {
	p := NewPanel(nil)

	p.ApplySnapshot(model.BotStatusSnapshot{
		Statuses:   []json.RawMessage{json.RawMessage(`{"bot_id":"a"}`)},
		ReceivedAt: time.Now(),
	})
	p.ApplySnapshot(model.BotStatusSnapshot{
		Statuses:   []json.RawMessage{},
		ReceivedAt: time.Now(),
	})

	if got := len(p.Snapshot()); got != 0 {
		t.Errorf("len(Snapshot) = %d, want 0 (empty snapshot replaces too)", got)
	}
}

func TestPanel_UndecodableRecordKeptRaw(t *testing.T) {
	p := NewPanel(nil)

	p.ApplySnapshot(model.BotStatusSnapshot{
		Statuses: []json.RawMessage{
			json.RawMessage(`"just a string"`),
			json.RawMessage(`{"bot_id":"ok"}`),
		},
		ReceivedAt: time.Now(),
	})

	snap := p.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len(Snapshot) = %d, want 2 (bad record kept, not dropped)", len(snap))
	}
	if snap[0].BotID != "" || len(snap[0].Raw) == 0 {
		t.Errorf("snap[0] = %+v, want raw-only record", snap[0])
	}
	if snap[1].BotID != "ok" {
		t.Errorf("snap[1].BotID = %q, want ok", snap[1].BotID)
	}
}

func TestPanel_Apply(t *testing.T) {
	p := NewPanel(nil)

	msg := classify.Classify([]byte(`{"type":"bot_status_update","statuses":[{"bot_id":"x"}]}`), time.Now())
	if !p.Apply(msg) {
		t.Error("Apply(bot status) = false, want true")
	}

	price := classify.Classify([]byte(`{"symbol":"BTCUSDT","price":1}`), time.Now())
	if p.Apply(price) {
		t.Error("Apply(price) = true, want false")
	}

	// Prior state survives unrelated messages (stale display across
	// disconnects is intentional).
	if got := len(p.Snapshot()); got != 1 {
		t.Errorf("len(Snapshot) = %d, want 1", got)
	}
}
