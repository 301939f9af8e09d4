package classify

import (
	"testing"
	"time"
)

func TestClassify_PriceUpdate(t *testing.T) {
	raw := []byte(`{"type":"price_update","symbol":"BTCUSDT","price":64321.5,"timestamp":"2025-08-25T10:30:00Z"}`)
	now := time.Now()

	msg := Classify(raw, now)

	if msg.Kind != KindPrice {
		t.Fatalf("Kind = %q, want %q", msg.Kind, KindPrice)
	}
	if msg.Price == nil {
		t.Fatal("Price is nil")
	}
	if msg.Price.Symbol != "BTCUSDT" {
		t.Errorf("Symbol = %q, want BTCUSDT", msg.Price.Symbol)
	}
	if msg.Price.Price != 64321.5 {
		t.Errorf("Price = %v, want 64321.5", msg.Price.Price)
	}
	if msg.Price.Timestamp.IsZero() {
		t.Error("Timestamp not parsed")
	}
	if !msg.Price.ReceivedAt.Equal(now) {
		t.Errorf("ReceivedAt = %v, want %v", msg.Price.ReceivedAt, now)
	}
	if msg.TypeTag() != "price_update" {
		t.Errorf("TypeTag = %q, want price_update", msg.TypeTag())
	}
}

func TestClassify_PriceWithoutTimestamp(t *testing.T) {
	msg := Classify([]byte(`{"symbol":"ETHUSDT","price":3000}`), time.Now())

	if msg.Kind != KindPrice {
		t.Fatalf("Kind = %q, want %q (tag is not required)", msg.Kind, KindPrice)
	}
	if !msg.Price.Timestamp.IsZero() {
		t.Errorf("Timestamp = %v, want zero", msg.Price.Timestamp)
	}
}

func TestClassify_BotStatus(t *testing.T) {
	raw := []byte(`{"type":"bot_status_update","statuses":[{"bot_id":"a"},{"bot_id":"b"}],"timestamp":"2025-08-25T10:30:00Z"}`)

	msg := Classify(raw, time.Now())

	if msg.Kind != KindBotStatus {
		t.Fatalf("Kind = %q, want %q", msg.Kind, KindBotStatus)
	}
	if got := len(msg.BotStatus.Statuses); got != 2 {
		t.Errorf("len(Statuses) = %d, want 2", got)
	}
}

func TestClassify_BotStatusEmptyArray(t *testing.T) {
	msg := Classify([]byte(`{"statuses":[]}`), time.Now())

	if msg.Kind != KindBotStatus {
		t.Fatalf("Kind = %q, want %q (empty sequence is valid)", msg.Kind, KindBotStatus)
	}
	if msg.BotStatus.Statuses == nil || len(msg.BotStatus.Statuses) != 0 {
		t.Errorf("Statuses = %v, want empty non-nil", msg.BotStatus.Statuses)
	}
}

func TestClassify_StructuralValidation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Kind
	}{
		// The tag alone never classifies: required fields must be present
		// and correctly typed.
		{"spoofed price tag without fields", `{"type":"price_update"}`, KindOther},
		{"price wrong-typed", `{"type":"price_update","symbol":"BTCUSDT","price":"64321.5"}`, KindOther},
		{"symbol wrong-typed", `{"type":"price_update","symbol":42,"price":100}`, KindOther},
		{"empty symbol", `{"symbol":"","price":100}`, KindOther},
		{"missing price", `{"symbol":"BTCUSDT"}`, KindOther},
		{"statuses wrong-typed", `{"type":"bot_status_update","statuses":{"a":1}}`, KindOther},
		{"statuses null", `{"statuses":null}`, KindOther},
		{"greeting frame", `{"type":"status","message":"Connected to real-time updates."}`, KindOther},
		{"unknown object", `{"type":"mystery","payload":1}`, KindOther},
		{"json array", `[1,2,3]`, KindOther},
		{"json scalar", `42`, KindOther},
		{"json null", `null`, KindOther},
		{"non-json", `hello world`, KindRaw},
		{"truncated json", `{"symbol":"BT`, KindRaw},
		{"empty payload", ``, KindRaw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Classify([]byte(tt.raw), time.Now())
			if msg.Kind != tt.want {
				t.Errorf("Classify(%q).Kind = %q, want %q", tt.raw, msg.Kind, tt.want)
			}
			if string(msg.Raw) != tt.raw {
				t.Errorf("Raw not retained verbatim: %q", msg.Raw)
			}
		})
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	// A frame satisfying both predicates classifies as price: the price
	// predicate runs first.
	raw := []byte(`{"symbol":"BTCUSDT","price":1.5,"statuses":[]}`)

	msg := Classify(raw, time.Now())

	if msg.Kind != KindPrice {
		t.Errorf("Kind = %q, want %q (price predicate has priority)", msg.Kind, KindPrice)
	}
}

func TestTypeTag_Raw(t *testing.T) {
	msg := Classify([]byte(`not json`), time.Now())
	if tag := msg.TypeTag(); tag != "" {
		t.Errorf("TypeTag = %q, want empty for raw frames", tag)
	}
}
