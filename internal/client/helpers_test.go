package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/bingo-backend/internal/bus"
	"github.com/rocketscienceinc/bingo-backend/internal/entity"
	"github.com/rocketscienceinc/bingo-backend/internal/repository"
	"github.com/rocketscienceinc/bingo-backend/internal/usecase"
	"github.com/rocketscienceinc/bingo-backend/transport/rest"
	wstransport "github.com/rocketscienceinc/bingo-backend/transport/websocket"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// newTestBackend runs the full HTTP and real-time stack on an in-memory store.
// The returned function stops forwarding and drops every real-time connection.
func newTestBackend(t *testing.T) (*httptest.Server, context.CancelFunc) {
	t.Helper()

	logger := newTestLogger()
	eventBus := bus.NewLocalBus(logger, 16)

	ctx, cancel := context.WithCancel(context.Background())

	socket := wstransport.New(logger, eventBus, wstransport.Options{})
	require.NoError(t, socket.Start(ctx))

	manager := usecase.NewSessionManager(logger, repository.NewMemorySessionRepository())
	backend := httptest.NewServer(rest.New(logger, manager, socket))

	t.Cleanup(func() {
		cancel()
		backend.Close()
		_ = eventBus.Close()
	})

	return backend, cancel
}

func wsURL(backend *httptest.Server) string {
	return "ws" + strings.TrimPrefix(backend.URL, "http") + "/ws"
}

// scriptedServer speaks the real-time greeting but leaves every connection under
// the test's control, so tests can drop and delay connections at will.
type scriptedServer struct {
	*httptest.Server
	// handshaking receives the attempt number before the greeting is sent.
	handshaking chan int32
	// accepted receives each connection once it has been greeted.
	accepted chan *websocket.Conn
}

func newScriptedServer(t *testing.T, beforeGreeting func(attempt int32)) *scriptedServer {
	t.Helper()

	server := &scriptedServer{
		handshaking: make(chan int32, 16),
		accepted:    make(chan *websocket.Conn, 16),
	}

	var attempts atomic.Int32
	upgrader := websocket.Upgrader{}

	server.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		attempt := attempts.Add(1)
		server.handshaking <- attempt
		if beforeGreeting != nil {
			beforeGreeting(attempt)
		}

		if err = conn.WriteJSON(wstransport.Message{Action: wstransport.ActionConnected}); err != nil {
			return
		}
		server.accepted <- conn

		for {
			if _, _, err = conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	return server
}

func (that *scriptedServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()

	select {
	case conn := <-that.accepted:
		return conn
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no connection accepted within timeout")
	}

	return nil
}

func sendEvent(t *testing.T, conn *websocket.Conn, event entity.BingoEvent) {
	t.Helper()

	message, err := wstransport.NewMessage(wstransport.ActionOtherBingo, event)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(message))
}
