package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/moby/locker"
	"github.com/rocketscienceinc/bingo-backend/internal/apperror"
	"github.com/rocketscienceinc/bingo-backend/internal/bingo"
	"github.com/rocketscienceinc/bingo-backend/internal/entity"
)

var ErrEmptySessionID = fmt.Errorf("%w: session id is required", apperror.ErrInvalidConfig)

type sessionRepo interface {
	CreateOrUpdate(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	Update(ctx context.Context, id string, change func(*entity.Session) error) (*entity.Session, error)
}

// SessionView is a session together with the lines it currently completes.
type SessionView struct {
	*entity.Session
	Lines    []entity.Line `json:"lines"`
	HasBingo bool          `json:"hasBingo"`
}

// SessionManager owns every session. Mutations of one session id are serialized
// in this process by a per-id lock and across processes by the repository's Update;
// different ids proceed independently.
type SessionManager struct {
	logger      *slog.Logger
	sessionRepo sessionRepo
	locks       *locker.Locker
	newID       func() string
}

func NewSessionManager(logger *slog.Logger, sessionRepo sessionRepo) *SessionManager {
	return &SessionManager{
		logger:      logger.With("component", "session_manager"),
		sessionRepo: sessionRepo,
		locks:       locker.New(),
		newID:       uuid.NewString,
	}
}

func (that *SessionManager) Create(ctx context.Context, config entity.SessionConfig) (*entity.Session, error) {
	log := that.logger.With("method", "Create")

	session, err := entity.NewSession(that.newID(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err = that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	log.Info("session created", "sessionID", session.ID, "size", session.Size)

	return session, nil
}

func (that *SessionManager) Get(ctx context.Context, id string) (*entity.Session, error) {
	if id == "" {
		return nil, ErrEmptySessionID
	}

	session, err := that.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// View loads a session and runs line detection on it.
func (that *SessionManager) View(ctx context.Context, id string) (*SessionView, error) {
	session, err := that.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return NewSessionView(session), nil
}

func (that *SessionManager) Update(ctx context.Context, id string, update entity.SessionUpdate) (*entity.Session, error) {
	return that.mutate(ctx, id, "Update", func(session *entity.Session) error {
		return session.Apply(update)
	})
}

// Upsert updates the session when id is known and creates a new one otherwise.
func (that *SessionManager) Upsert(ctx context.Context, id string, update entity.SessionUpdate) (*entity.Session, error) {
	if id != "" {
		session, err := that.Update(ctx, id, update)
		if !errors.Is(err, apperror.ErrNotFound) {
			return session, err
		}
	}

	config := entity.SessionConfig{Size: entity.DefaultSize, Items: update.Items}
	if update.Name != nil {
		config.Name = *update.Name
	}
	if update.Size != nil {
		config.Size = *update.Size
	}

	return that.Create(ctx, config)
}

func (that *SessionManager) ToggleMark(ctx context.Context, id string, index int) (*entity.Session, error) {
	return that.mutate(ctx, id, "ToggleMark", func(session *entity.Session) error {
		return session.ToggleMark(index)
	})
}

func (that *SessionManager) ResetMarks(ctx context.Context, id string) (*entity.Session, error) {
	return that.mutate(ctx, id, "ResetMarks", func(session *entity.Session) error {
		session.ResetMarks()
		return nil
	})
}

// ResetSession restores default configuration in place; the id stays valid.
func (that *SessionManager) ResetSession(ctx context.Context, id string) (*entity.Session, error) {
	return that.mutate(ctx, id, "ResetSession", func(session *entity.Session) error {
		session.Reset()
		return nil
	})
}

// mutate runs a read-modify-write on one session while holding that session's lock.
func (that *SessionManager) mutate(ctx context.Context, id, method string, change func(*entity.Session) error) (*entity.Session, error) {
	log := that.logger.With("method", method, "sessionID", id)

	if id == "" {
		return nil, ErrEmptySessionID
	}

	that.locks.Lock(id)
	defer func() {
		if err := that.locks.Unlock(id); err != nil {
			log.Error("failed to release session lock", "error", err)
		}
	}()

	session, err := that.sessionRepo.Update(ctx, id, change)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	log.Debug("session updated", "marks", session.Marks.Indices())

	return session, nil
}

func NewSessionView(session *entity.Session) *SessionView {
	lines := bingo.DetectSession(session)

	return &SessionView{
		Session:  session,
		Lines:    lines,
		HasBingo: bingo.HasLine(lines),
	}
}
