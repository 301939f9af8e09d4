package classify

import (
	"encoding/json"
	"time"

	"github.com/rickgao/botstream/internal/model"
)

// Kind identifies the classified shape of an inbound frame.
type Kind string

const (
	// KindPrice is a single-symbol price update.
	KindPrice Kind = "price_update"

	// KindBotStatus is a complete bot-status snapshot.
	KindBotStatus Kind = "bot_status_update"

	// KindOther is well-formed JSON matching no known shape
	// (includes the server's "status" greeting frame).
	KindOther Kind = "other"

	// KindRaw is an undecodable payload, retained verbatim for diagnostics.
	KindRaw Kind = "raw"
)

// Message is a classified inbound frame. Raw always holds the frame verbatim;
// exactly one of Price/BotStatus is set for the typed kinds.
type Message struct {
	Kind       Kind
	Raw        []byte
	ReceivedAt time.Time

	Price     *model.PriceUpdate       // Set when Kind == KindPrice
	BotStatus *model.BotStatusSnapshot // Set when Kind == KindBotStatus
}

// TypeTag returns the frame's "type" field when present, for logging and the
// journal. Empty for raw frames and untagged JSON.
func (m Message) TypeTag() string {
	if m.Kind == KindRaw {
		return ""
	}
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(m.Raw, &env); err != nil {
		return ""
	}
	return env.Type
}
