package websocket

import (
	"encoding/json"
	"fmt"
)

const (
	ActionBingo      = "bingo"
	ActionOtherBingo = "other-bingo"
	ActionConnected  = "connected"
	ActionError      = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// BingoPayload is sent by a client whose grid just completed a line.
type BingoPayload struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
}

type ConnectedPayload struct {
	SessionID string `json:"sessionId,omitempty"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

func NewMessage(action string, payload any) (*Message, error) {
	message := &Message{Action: action}

	if payload == nil {
		return message, nil
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	message.Payload = payloadJSON

	return message, nil
}

func encodeMessage(action string, payload any) ([]byte, error) {
	message, err := NewMessage(action, payload)
	if err != nil {
		return nil, err
	}

	messageJSON, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return messageJSON, nil
}
