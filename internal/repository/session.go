package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/bingo-backend/internal/apperror"
	"github.com/rocketscienceinc/bingo-backend/internal/entity"
)

const (
	sessionKeyPrefix = "session:"

	// maxUpdateAttempts bounds optimistic retries when other writers keep changing the key.
	maxUpdateAttempts = 64
)

var ErrTooManyConflicts = errors.New("too many concurrent updates")

type SessionRepository interface {
	CreateOrUpdate(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	// Update applies change to the stored session atomically with respect to every
	// other writer of the same id and returns the saved result.
	Update(ctx context.Context, id string, change func(*entity.Session) error) (*entity.Session, error)
}

type dbSession struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionRepository stores sessions as JSON in Redis. A zero ttl keeps keys until Redis evicts them.
func NewSessionRepository(client *redis.Client, ttl time.Duration) SessionRepository {
	return &dbSession{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (that *dbSession) CreateOrUpdate(ctx context.Context, session *entity.Session) error {
	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("could not marshal session: %w", err)
	}

	err = that.client.Set(ctx, sessionKey(session.ID), sessionJSON, that.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}

	return nil
}

func (that *dbSession) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	response, err := that.client.Get(ctx, sessionKey(id)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get session by id: %w", err)
	}

	return decodeSession([]byte(response))
}

// Update runs change inside a WATCH/MULTI transaction and retries when another
// client modified the key in between, so concurrent replicas never lose a write.
func (that *dbSession) Update(ctx context.Context, id string, change func(*entity.Session) error) (*entity.Session, error) {
	key := sessionKey(id)

	var updated *entity.Session
	transaction := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get session by id: %w", err)
		}

		session, err := decodeSession(response)
		if err != nil {
			return err
		}

		if err = change(session); err != nil {
			return fmt.Errorf("failed to change session: %w", err)
		}

		sessionJSON, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("could not marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, sessionJSON, that.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		updated = session

		return nil
	}

	for range maxUpdateAttempts {
		err := that.client.Watch(ctx, transaction, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}

		return updated, nil
	}

	return nil, fmt.Errorf("failed to update session %s: %w", id, ErrTooManyConflicts)
}

func decodeSession(data []byte) (*entity.Session, error) {
	var session entity.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if session.Marks == nil {
		session.Marks = entity.Marks{}
	}

	return &session, nil
}
