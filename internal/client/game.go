package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/bingo-backend/internal/bingo"
	"github.com/rocketscienceinc/bingo-backend/internal/usecase"
)

type sessionAPI interface {
	GetSession(ctx context.Context, sessionID string) (*usecase.SessionView, error)
	ToggleMark(ctx context.Context, sessionID string, index int) (*usecase.SessionView, error)
}

type bingoPublisher interface {
	PublishBingo(ctx context.Context, name string) error
}

// Game is one player's view of a session. It announces a bingo once each time the
// grid goes from having no line to having at least one.
type Game struct {
	logger    *slog.Logger
	sessionID string
	sessions  sessionAPI
	publisher bingoPublisher
	trigger   *bingo.EdgeTrigger
}

func NewGame(logger *slog.Logger, sessionID string, sessions sessionAPI, publisher bingoPublisher) *Game {
	return &Game{
		logger:    logger.With("component", "game", "sessionID", sessionID),
		sessionID: sessionID,
		sessions:  sessions,
		publisher: publisher,
		trigger:   bingo.NewEdgeTrigger(),
	}
}

// Refresh reads the session and publishes when a first line has just appeared.
func (that *Game) Refresh(ctx context.Context) (*usecase.SessionView, error) {
	view, err := that.sessions.GetSession(ctx, that.sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return view, that.observe(ctx, view)
}

func (that *Game) ToggleMark(ctx context.Context, index int) (*usecase.SessionView, error) {
	view, err := that.sessions.ToggleMark(ctx, that.sessionID, index)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle mark: %w", err)
	}

	return view, that.observe(ctx, view)
}

func (that *Game) State() bingo.EdgeState {
	return that.trigger.State()
}

func (that *Game) observe(ctx context.Context, view *usecase.SessionView) error {
	lines := bingo.DetectSession(view.Session)

	if !that.trigger.Observe(bingo.HasLine(lines)) {
		return nil
	}

	that.logger.Info("bingo", "lines", len(lines))

	if err := that.publisher.PublishBingo(ctx, view.Name); err != nil {
		return fmt.Errorf("failed to publish bingo: %w", err)
	}

	return nil
}
