package view

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/botstream/internal/classify"
	"github.com/rickgao/botstream/internal/model"
)

// Panel is the bot-status display. The server always broadcasts a complete
// snapshot, so reconciliation is wholesale replacement: no merge, no deltas,
// and gaps across reconnects are harmless.
type Panel struct {
	logger *slog.Logger

	mu        sync.RWMutex
	statuses  []model.BotStatus
	updatedAt time.Time
}

// NewPanel creates an empty bot-status panel.
func NewPanel(logger *slog.Logger) *Panel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Panel{logger: logger}
}

// Apply reconciles a classified message into the panel. Non-bot-status
// messages are ignored. Returns true if the panel was replaced.
func (p *Panel) Apply(msg classify.Message) bool {
	if msg.Kind != classify.KindBotStatus || msg.BotStatus == nil {
		return false
	}
	p.ApplySnapshot(*msg.BotStatus)
	return true
}

// ApplySnapshot replaces the panel's contents with the incoming snapshot.
// Records that fail to decode keep only their raw form; the record shape is
// the server's business, not a reason to drop the snapshot.
func (p *Panel) ApplySnapshot(s model.BotStatusSnapshot) {
	statuses := make([]model.BotStatus, 0, len(s.Statuses))
	for _, raw := range s.Statuses {
		status, err := model.DecodeBotStatus(raw)
		if err != nil {
			p.logger.Warn("undecodable bot status record, keeping raw", "error", err)
			status = model.BotStatus{Raw: raw}
		}
		statuses = append(statuses, status)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = statuses
	p.updatedAt = s.ReceivedAt
}

// Snapshot returns a copy of the current statuses.
func (p *Panel) Snapshot() []model.BotStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]model.BotStatus, len(p.statuses))
	copy(out, p.statuses)
	return out
}

// UpdatedAt returns the local time of the last applied snapshot; zero before
// the first one.
func (p *Panel) UpdatedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updatedAt
}
