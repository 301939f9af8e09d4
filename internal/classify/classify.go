package classify

import (
	"encoding/json"
	"math"
	"time"

	"github.com/rickgao/botstream/internal/model"
)

// Classify inspects a raw frame and returns a typed Message. It never fails:
// undecodable input becomes KindRaw, unrecognized JSON becomes KindOther.
func Classify(raw []byte, receivedAt time.Time) Message {
	msg := Message{
		Kind:       KindRaw,
		Raw:        raw,
		ReceivedAt: receivedAt,
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		// Non-JSON or non-object payload. Valid JSON scalars and arrays
		// carry no recognizable shape either, so they land in "other".
		if json.Valid(raw) {
			msg.Kind = KindOther
		}
		return msg
	}

	// Predicates in fixed priority order; first match wins.
	if price, ok := asPriceUpdate(obj, receivedAt); ok {
		msg.Kind = KindPrice
		msg.Price = price
		return msg
	}
	if snapshot, ok := asBotStatus(obj, receivedAt); ok {
		msg.Kind = KindBotStatus
		msg.BotStatus = snapshot
		return msg
	}

	msg.Kind = KindOther
	return msg
}

// asPriceUpdate checks the price-update shape: symbol is a non-empty string
// and price is a finite number. A required field that is present but
// wrong-typed fails the predicate.
func asPriceUpdate(obj map[string]json.RawMessage, receivedAt time.Time) (*model.PriceUpdate, bool) {
	symbolRaw, ok := obj["symbol"]
	if !ok {
		return nil, false
	}
	var symbol string
	if err := json.Unmarshal(symbolRaw, &symbol); err != nil || symbol == "" {
		return nil, false
	}

	priceRaw, ok := obj["price"]
	if !ok {
		return nil, false
	}
	var price float64
	if err := json.Unmarshal(priceRaw, &price); err != nil {
		return nil, false
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, false
	}

	return &model.PriceUpdate{
		Symbol:     symbol,
		Price:      price,
		Timestamp:  optionalTimestamp(obj),
		ReceivedAt: receivedAt,
	}, true
}

// asBotStatus checks the bot-status shape: statuses is present and is an
// array, possibly empty. Record shapes stay opaque at this layer.
func asBotStatus(obj map[string]json.RawMessage, receivedAt time.Time) (*model.BotStatusSnapshot, bool) {
	statusesRaw, ok := obj["statuses"]
	if !ok {
		return nil, false
	}
	var statuses []json.RawMessage
	if err := json.Unmarshal(statusesRaw, &statuses); err != nil {
		return nil, false
	}
	if statuses == nil {
		// JSON null decodes to a nil slice; null is not a sequence.
		return nil, false
	}

	return &model.BotStatusSnapshot{
		Statuses:   statuses,
		Timestamp:  optionalTimestamp(obj),
		ReceivedAt: receivedAt,
	}, true
}

// optionalTimestamp reads the advisory timestamp field; zero when absent,
// wrong-typed, or unparseable.
func optionalTimestamp(obj map[string]json.RawMessage) time.Time {
	tsRaw, ok := obj["timestamp"]
	if !ok {
		return time.Time{}
	}
	var ts string
	if err := json.Unmarshal(tsRaw, &ts); err != nil {
		return time.Time{}
	}
	return model.ParseTimestamp(ts)
}
