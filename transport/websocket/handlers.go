package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/bingo-backend/internal/entity"
)

// handleBingo stamps the announcement with server time and publishes it to every game.
func (that *Server) handleBingo(ctx context.Context, client *Client, message *Message) error {
	log := that.logger.With("method", "handleBingo")

	var payload BingoPayload
	if len(message.Payload) > 0 {
		if err := json.Unmarshal(message.Payload, &payload); err != nil {
			client.sendError("malformed bingo payload")
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}

	if payload.SessionID == "" {
		payload.SessionID = client.sessionID
	}

	if payload.SessionID == "" {
		client.sendError("sessionId is required")
		return nil
	}

	event := entity.NewBingoEvent(payload.SessionID, payload.Name)
	if err := that.bus.Publish(ctx, event); err != nil {
		client.sendError("failed to publish bingo")
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Info("bingo announced", "sessionID", event.SessionID, "name", event.Name)

	return nil
}
