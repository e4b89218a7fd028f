package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/rocketscienceinc/bingo-backend/internal/apperror"
	"github.com/rocketscienceinc/bingo-backend/internal/entity"
)

type memorySession struct {
	mu       sync.RWMutex
	sessions map[string]*entity.Session
}

// NewMemorySessionRepository keeps sessions for the lifetime of the process.
// Stored values are copied on the way in and out so callers never share state with the table.
func NewMemorySessionRepository() SessionRepository {
	return &memorySession{
		sessions: make(map[string]*entity.Session),
	}
}

func (that *memorySession) CreateOrUpdate(_ context.Context, session *entity.Session) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.sessions[session.ID] = clone(session)

	return nil
}

func (that *memorySession) GetByID(_ context.Context, id string) (*entity.Session, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	session, ok := that.sessions[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}

	return clone(session), nil
}

func (that *memorySession) Update(_ context.Context, id string, change func(*entity.Session) error) (*entity.Session, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	stored, ok := that.sessions[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}

	session := clone(stored)
	if err := change(session); err != nil {
		return nil, fmt.Errorf("failed to change session: %w", err)
	}

	that.sessions[id] = clone(session)

	return session, nil
}

func clone(session *entity.Session) *entity.Session {
	copied := *session
	copied.Items = append([]string(nil), session.Items...)
	copied.Marks = session.Marks.Clone()
	return &copied
}
