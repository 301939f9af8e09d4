package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/rickgao/botstream/internal/model"
)

// ListBotConfigs fetches all bot configurations owned by the session user.
func (c *Client) ListBotConfigs(ctx context.Context) ([]model.BotConfig, error) {
	var resp []model.BotConfig
	if err := c.get(ctx, "/api/bots", nil, &resp); err != nil {
		return nil, fmt.Errorf("list bot configs: %w", err)
	}
	return resp, nil
}

// GetBotConfig fetches a single bot configuration by ID.
func (c *Client) GetBotConfig(ctx context.Context, id uuid.UUID) (*model.BotConfig, error) {
	var resp model.BotConfig
	if err := c.get(ctx, "/api/bots/"+id.String(), nil, &resp); err != nil {
		return nil, fmt.Errorf("get bot config %s: %w", id, err)
	}
	return &resp, nil
}

// GetBotStatus fetches the runtime status of a single bot. The record shape
// matches the per-bot entries in the stream's bot_status_update frames.
func (c *Client) GetBotStatus(ctx context.Context, id uuid.UUID) (model.BotStatus, error) {
	body, err := c.doWithRetry(ctx, "GET", "/api/bots/"+id.String()+"/status", nil)
	if err != nil {
		return model.BotStatus{}, fmt.Errorf("get bot status %s: %w", id, err)
	}

	status, err := model.DecodeBotStatus(json.RawMessage(body))
	if err != nil {
		return model.BotStatus{}, fmt.Errorf("decode bot status %s: %w", id, err)
	}
	return status, nil
}
