package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/bingo-backend/internal/bus"
	"github.com/rocketscienceinc/bingo-backend/internal/entity"
)

// Options tune the connection pumps. Zero values fall back to defaults.
type Options struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func (that Options) withDefaults() Options {
	if that.WriteWait <= 0 {
		that.WriteWait = 10 * time.Second
	}
	if that.PongWait <= 0 {
		that.PongWait = 60 * time.Second
	}
	if that.MaxMessageSize <= 0 {
		that.MaxMessageSize = 4096
	}
	if that.SendBuffer <= 0 {
		that.SendBuffer = 64
	}
	return that
}

// pingPeriod must be less than PongWait.
func (that Options) pingPeriod() time.Duration {
	return that.PongWait * 9 / 10
}

type Server struct {
	logger   *slog.Logger
	bus      bus.Bus
	options  Options
	upgrader websocket.Upgrader

	connectionsMutex sync.RWMutex
	connections      map[*Client]struct{}

	handlers map[string]func(ctx context.Context, client *Client, message *Message) error
}

func New(logger *slog.Logger, eventBus bus.Bus, options Options) *Server {
	server := &Server{
		logger:  logger.With("component", "websocket"),
		bus:     eventBus,
		options: options.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		connections: make(map[*Client]struct{}),

		handlers: make(map[string]func(context.Context, *Client, *Message) error),
	}

	server.handlers[ActionBingo] = server.handleBingo

	return server
}

// Start subscribes to the bus and forwards every event to connected clients
// until ctx is canceled or the bus closes the subscription.
func (that *Server) Start(ctx context.Context) error {
	subscription, err := that.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to bus: %w", err)
	}

	go that.forward(ctx, subscription)

	return nil
}

func (that *Server) forward(ctx context.Context, subscription *bus.Subscription) {
	log := that.logger.With("method", "forward")

	defer that.closeAll()
	defer subscription.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-subscription.Events():
			if !ok {
				log.Info("bus subscription closed")
				return
			}

			that.broadcast(event)
		}
	}
}

// ServeHTTP upgrades the request and serves the connection until it is closed.
func (that *Server) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	sessionID := req.URL.Query().Get("sessionId")
	log := that.logger.With("method", "ServeHTTP", "sessionID", sessionID)

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	client := &Client{
		server:    that,
		conn:      conn,
		send:      make(chan []byte, that.options.SendBuffer),
		sessionID: sessionID,
	}

	greeting, err := encodeMessage(ActionConnected, ConnectedPayload{SessionID: sessionID})
	if err != nil {
		log.Error("failed to encode greeting", "error", err)
		_ = conn.Close()
		return
	}
	client.send <- greeting

	that.register(client)

	log.Info("WebSocket connection established")

	go client.writePump()
	client.readPump(req.Context())
}

// ConnectionCount reports how many clients are registered.
func (that *Server) ConnectionCount() int {
	that.connectionsMutex.RLock()
	defer that.connectionsMutex.RUnlock()

	return len(that.connections)
}

func (that *Server) register(client *Client) {
	that.connectionsMutex.Lock()
	that.connections[client] = struct{}{}
	that.connectionsMutex.Unlock()
}

func (that *Server) unregister(client *Client) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	if _, ok := that.connections[client]; !ok {
		return
	}

	delete(that.connections, client)
	close(client.send)
}

func (that *Server) closeAll() {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	for client := range that.connections {
		delete(that.connections, client)
		close(client.send)
	}
}

// broadcast sends the event to every client without waiting for slow ones.
func (that *Server) broadcast(event entity.BingoEvent) {
	log := that.logger.With("method", "broadcast", "sessionID", event.SessionID)

	data, err := encodeMessage(ActionOtherBingo, event)
	if err != nil {
		log.Error("failed to encode event", "error", err)
		return
	}

	that.connectionsMutex.RLock()
	defer that.connectionsMutex.RUnlock()

	for client := range that.connections {
		if !client.offer(data) {
			log.Warn("client is not keeping up, event dropped", "clientSessionID", client.sessionID)
		}
	}
}
