package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/rickgao/botstream/internal/model"
)

// GetSymbolPrice fetches the current average price for a trading symbol.
// The backend expects uppercase symbols; lowercase input is normalized here.
func (c *Client) GetSymbolPrice(ctx context.Context, symbol string) (*model.SymbolPrice, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	var resp model.SymbolPrice
	if err := c.get(ctx, "/api/market/price/"+symbol, nil, &resp); err != nil {
		return nil, fmt.Errorf("get price %s: %w", symbol, err)
	}

	return &resp, nil
}
