package view

import (
	"strings"
	"sync"
	"time"

	"github.com/rickgao/botstream/internal/classify"
	"github.com/rickgao/botstream/internal/model"
)

// BoardEntry is one row of the price board.
type BoardEntry struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	HasPrice  bool      `json:"has_price"`  // False until the first update lands
	UpdatedAt time.Time `json:"updated_at"` // Local time of the last applied update
}

// Board is the watched-symbol price display. Rows are fixed at construction:
// an update for a symbol that is not on the board is dropped, never inserted.
type Board struct {
	mu      sync.RWMutex
	order   []string              // Display order, as configured
	entries map[string]BoardEntry // Keyed by symbol
}

// NewBoard creates a board watching the given symbols. Symbols are normalized
// to uppercase and deduplicated, preserving first-seen order.
func NewBoard(symbols []string) *Board {
	b := &Board{
		entries: make(map[string]BoardEntry, len(symbols)),
	}
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := b.entries[s]; ok {
			continue
		}
		b.order = append(b.order, s)
		b.entries[s] = BoardEntry{Symbol: s}
	}
	return b
}

// Apply reconciles a classified message into the board. Non-price messages
// are ignored. Returns true if a row changed.
func (b *Board) Apply(msg classify.Message) bool {
	if msg.Kind != classify.KindPrice || msg.Price == nil {
		return false
	}
	return b.ApplyPrice(*msg.Price)
}

// ApplyPrice merges a price update by key: an existing row gets its price and
// update time replaced in place, everything else untouched. Unknown symbols
// are dropped silently.
func (b *Board) ApplyPrice(u model.PriceUpdate) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[u.Symbol]
	if !ok {
		return false
	}

	entry.Price = u.Price
	entry.HasPrice = true
	entry.UpdatedAt = u.ReceivedAt
	b.entries[u.Symbol] = entry
	return true
}

// Symbols returns the watched symbols in display order.
func (b *Board) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Snapshot returns a copy of all rows in display order.
func (b *Board) Snapshot() []BoardEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]BoardEntry, 0, len(b.order))
	for _, s := range b.order {
		out = append(out, b.entries[s])
	}
	return out
}

// Get returns a single row by symbol.
func (b *Board) Get(symbol string) (BoardEntry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entry, ok := b.entries[strings.ToUpper(symbol)]
	return entry, ok
}
