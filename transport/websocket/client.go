package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one upgraded connection. The server owns the send channel and closes it on unregister.
type Client struct {
	server    *Server
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

func (that *Client) offer(data []byte) bool {
	select {
	case that.send <- data:
		return true
	default:
		return false
	}
}

// readPump dispatches incoming messages until the connection fails.
func (that *Client) readPump(ctx context.Context) {
	log := that.server.logger.With("method", "readPump", "sessionID", that.sessionID)

	defer func() {
		that.server.unregister(that)
		_ = that.conn.Close()
	}()

	options := that.server.options

	that.conn.SetReadLimit(options.MaxMessageSize)
	_ = that.conn.SetReadDeadline(time.Now().Add(options.PongWait))
	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(options.PongWait))
	})

	for {
		_, reqBody, err := that.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("error reading message", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(reqBody, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			that.sendError("malformed message")
			continue
		}

		handler, ok := that.server.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			that.sendError("unknown action: " + message.Action)
			continue
		}

		if err = handler(ctx, that, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

func (that *Client) writePump() {
	options := that.server.options

	ticker := time.NewTicker(options.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case message, ok := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(options.WriteWait))
			if !ok {
				_ = that.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := that.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(options.WriteWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (that *Client) sendError(text string) {
	log := that.server.logger.With("method", "sendError")

	data, err := encodeMessage(ActionError, ErrorPayload{Error: text})
	if err != nil {
		log.Error("failed to encode error", "error", err)
		return
	}

	that.server.connectionsMutex.RLock()
	defer that.server.connectionsMutex.RUnlock()

	if _, ok := that.server.connections[that]; ok && !that.offer(data) {
		log.Warn("client is not keeping up, error dropped")
	}
}
