package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rocketscienceinc/bingo-backend/internal/entity"
	"github.com/rocketscienceinc/bingo-backend/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

type sessionService interface {
	View(ctx context.Context, id string) (*usecase.SessionView, error)
	Upsert(ctx context.Context, id string, update entity.SessionUpdate) (*entity.Session, error)
	ToggleMark(ctx context.Context, id string, index int) (*entity.Session, error)
	ResetMarks(ctx context.Context, id string) (*entity.Session, error)
	ResetSession(ctx context.Context, id string) (*entity.Session, error)
}

// Server routes the HTTP API and mounts the real-time endpoint on /ws.
type Server struct {
	logger         *slog.Logger
	sessionService sessionService
	socket         http.Handler
	router         *mux.Router
}

func New(logger *slog.Logger, sessionService sessionService, socket http.Handler) *Server {
	server := &Server{
		logger:         logger.With("component", "rest"),
		sessionService: sessionService,
		socket:         socket,
		router:         mux.NewRouter(),
	}

	server.setupRoutes()

	return server
}

func (that *Server) setupRoutes() {
	that.router.Handle("/ping", NewPingHandler()).Methods(http.MethodGet)

	api := that.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session", that.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/session", that.handleSaveSession).Methods(http.MethodPost)
	api.HandleFunc("/mark", that.handleToggleMark).Methods(http.MethodPost)
	api.HandleFunc("/reset-marks", that.handleResetMarks).Methods(http.MethodPost)
	api.HandleFunc("/reset-session", that.handleResetSession).Methods(http.MethodPost)

	if that.socket != nil {
		that.router.Handle("/ws", that.socket)
	}
}

func (that *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	that.router.ServeHTTP(w, r)
}

// Start serves HTTP on port until ctx is canceled, then shuts down gracefully.
func (that *Server) Start(ctx context.Context, port string) error {
	log := that.logger.With("method", "Start")

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
