package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/bingo-backend/internal/bus"
	"github.com/rocketscienceinc/bingo-backend/internal/config"
	"github.com/rocketscienceinc/bingo-backend/internal/repository"
	"github.com/rocketscienceinc/bingo-backend/internal/repository/storage"
	"github.com/rocketscienceinc/bingo-backend/internal/usecase"
	"github.com/rocketscienceinc/bingo-backend/transport/rest"
	"github.com/rocketscienceinc/bingo-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application until a signal arrives or a server fails.
func RunApp(ctx context.Context, logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var redisStorage *storage.RedisStorage
	if conf.UsesRedis() {
		redisAddrString := conf.Redis.GetRedisAddr()
		if redisAddrString == "" {
			return ErrAddrNotFound
		}

		var err error
		redisStorage, err = storage.NewRedisStorage(ctx, redisAddrString)
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()
	}

	sessionRepo := repository.NewMemorySessionRepository()
	if conf.Storage == config.StorageRedis {
		sessionRepo = repository.NewSessionRepository(redisStorage.Connection, conf.Redis.SessionTTL)
	}

	var eventBus bus.Bus = bus.NewLocalBus(logger, conf.WebSocket.SendBuffer)
	if conf.Bus == config.BusRedis {
		eventBus = bus.NewRedisBus(logger, redisStorage.Connection, conf.Redis.Channel, conf.WebSocket.SendBuffer)
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			log.Error("could not close bus", "error", err)
		}
	}()

	sessionManager := usecase.NewSessionManager(logger, sessionRepo)

	wsServer := websocket.New(logger, eventBus, websocket.Options{
		WriteWait:      conf.WebSocket.WriteWait,
		PongWait:       conf.WebSocket.PongWait,
		MaxMessageSize: conf.WebSocket.MaxMessageSize,
		SendBuffer:     conf.WebSocket.SendBuffer,
	})
	if err := wsServer.Start(ctx); err != nil {
		return fmt.Errorf("could not start websocket server: %w", err)
	}

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort, "storage", conf.Storage, "bus", conf.Bus)
		httpErrCh <- rest.New(logger, sessionManager, wsServer).Start(ctx, conf.HTTPPort)
	}()

	select {
	case err := <-httpErrCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return <-httpErrCh
	}
}
