package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/rocketscienceinc/bingo-backend/internal/apperror"
	"github.com/rocketscienceinc/bingo-backend/internal/entity"
	"github.com/rocketscienceinc/bingo-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errRedisDown = errors.New("redis down")

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestManager() *SessionManager {
	return NewSessionManager(newTestLogger(), repository.NewMemorySessionRepository())
}

func ptr[T any](v T) *T {
	return &v
}

func TestSessionManager_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates a session with a fresh unique id", func(t *testing.T) {
		// Given: a session manager
		manager := newTestManager()

		// When: creating two sessions with the same config
		first, err := manager.Create(ctx, entity.SessionConfig{Name: "a", Size: 3})
		require.NoError(t, err)
		second, err := manager.Create(ctx, entity.SessionConfig{Name: "a", Size: 3})
		require.NoError(t, err)

		// Then: ids differ and items are normalized
		assert.NotEmpty(t, first.ID)
		assert.NotEqual(t, first.ID, second.ID)
		assert.Len(t, first.Items, 9)
		assert.Empty(t, first.Marks)
	})

	t.Run("Rejects invalid size without touching storage", func(t *testing.T) {
		repo := newMockSessionRepo(t)
		manager := NewSessionManager(newTestLogger(), repo)

		session, err := manager.Create(ctx, entity.SessionConfig{Size: 9})

		require.ErrorIs(t, err, apperror.ErrInvalidConfig)
		assert.Nil(t, session)
	})

	t.Run("Returns error if storage fails", func(t *testing.T) {
		// Given: a repository that cannot save
		repo := newMockSessionRepo(t)
		manager := NewSessionManager(newTestLogger(), repo)

		repo.On("CreateOrUpdate", mock.Anything, mock.AnythingOfType("*entity.Session")).
			Return(errRedisDown).
			Once()

		// When: creating a session
		session, err := manager.Create(ctx, entity.SessionConfig{Size: 2})

		// Then: the storage error is surfaced
		require.ErrorIs(t, err, errRedisDown)
		assert.Nil(t, session)
	})
}

func TestSessionManager_Get(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager()

	t.Run("Empty id is a client error", func(t *testing.T) {
		_, err := manager.Get(ctx, "")

		require.ErrorIs(t, err, apperror.ErrInvalidConfig)
	})

	t.Run("Unknown id is not found and is not created", func(t *testing.T) {
		_, err := manager.Get(ctx, "missing")
		require.ErrorIs(t, err, apperror.ErrNotFound)

		_, err = manager.Get(ctx, "missing")
		require.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestSessionManager_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("Merges fields and renormalizes items", func(t *testing.T) {
		// Given: a 2x2 session with a mark
		manager := newTestManager()
		created, err := manager.Create(ctx, entity.SessionConfig{Name: "old", Size: 2})
		require.NoError(t, err)
		_, err = manager.ToggleMark(ctx, created.ID, 1)
		require.NoError(t, err)

		// When: growing to 3x3 with new items
		updated, err := manager.Update(ctx, created.ID, entity.SessionUpdate{
			Size:  ptr(3),
			Items: []string{"x", "y"},
		})

		// Then: name and marks are kept, items fit the new grid
		require.NoError(t, err)
		assert.Equal(t, "old", updated.Name)
		assert.Equal(t, []string{"x", "y", "", "", "", "", "", "", ""}, updated.Items)
		assert.Equal(t, []int{1}, updated.Marks.Indices())
	})

	t.Run("Unknown id is not found", func(t *testing.T) {
		manager := newTestManager()

		_, err := manager.Update(ctx, "missing", entity.SessionUpdate{Name: ptr("x")})

		require.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestSessionManager_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates with defaults when id is absent", func(t *testing.T) {
		manager := newTestManager()

		session, err := manager.Upsert(ctx, "", entity.SessionUpdate{Name: ptr("fresh")})

		require.NoError(t, err)
		assert.Equal(t, "fresh", session.Name)
		assert.Equal(t, entity.DefaultSize, session.Size)
		assert.Len(t, session.Items, entity.DefaultSize*entity.DefaultSize)
	})

	t.Run("Creates a new session when id is unknown", func(t *testing.T) {
		manager := newTestManager()

		session, err := manager.Upsert(ctx, "unknown", entity.SessionUpdate{Size: ptr(2)})

		require.NoError(t, err)
		assert.NotEqual(t, "unknown", session.ID)
		assert.Equal(t, 2, session.Size)
	})

	t.Run("Updates when id is known", func(t *testing.T) {
		manager := newTestManager()
		created, err := manager.Create(ctx, entity.SessionConfig{Size: 2})
		require.NoError(t, err)

		session, err := manager.Upsert(ctx, created.ID, entity.SessionUpdate{Name: ptr("renamed")})

		require.NoError(t, err)
		assert.Equal(t, created.ID, session.ID)
		assert.Equal(t, "renamed", session.Name)
	})

	t.Run("Surfaces validation errors for known ids", func(t *testing.T) {
		manager := newTestManager()
		created, err := manager.Create(ctx, entity.SessionConfig{Size: 2})
		require.NoError(t, err)

		_, err = manager.Upsert(ctx, created.ID, entity.SessionUpdate{Size: ptr(1)})

		require.ErrorIs(t, err, apperror.ErrInvalidConfig)
	})
}

func TestSessionManager_ToggleMark(t *testing.T) {
	ctx := context.Background()

	t.Run("Toggle is its own inverse", func(t *testing.T) {
		manager := newTestManager()
		created, err := manager.Create(ctx, entity.SessionConfig{Size: 3})
		require.NoError(t, err)

		marked, err := manager.ToggleMark(ctx, created.ID, 4)
		require.NoError(t, err)
		assert.True(t, marked.Marks.Has(4))

		unmarked, err := manager.ToggleMark(ctx, created.ID, 4)
		require.NoError(t, err)
		assert.Empty(t, unmarked.Marks)
	})

	t.Run("Out of range index is rejected", func(t *testing.T) {
		manager := newTestManager()
		created, err := manager.Create(ctx, entity.SessionConfig{Size: 2})
		require.NoError(t, err)

		_, err = manager.ToggleMark(ctx, created.ID, 4)

		require.ErrorIs(t, err, apperror.ErrOutOfRange)
	})

	t.Run("Missing session is not found", func(t *testing.T) {
		manager := newTestManager()

		_, err := manager.ToggleMark(ctx, "missing", 0)

		require.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("Concurrent toggles on one session lose no updates", func(t *testing.T) {
		// Given: a 6x6 session
		manager := newTestManager()
		created, err := manager.Create(ctx, entity.SessionConfig{Size: 6})
		require.NoError(t, err)

		// When: every cell is toggled concurrently
		var wg sync.WaitGroup
		for index := range 36 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, toggleErr := manager.ToggleMark(ctx, created.ID, index)
				assert.NoError(t, toggleErr)
			}()
		}
		wg.Wait()

		// Then: all 36 marks are present
		session, err := manager.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Len(t, session.Marks, 36)
	})

	t.Run("Storage failure on update is surfaced", func(t *testing.T) {
		repo := newMockSessionRepo(t)
		manager := NewSessionManager(newTestLogger(), repo)

		repo.On("Update", mock.Anything, "s1").Return(nil, errRedisDown).Once()

		_, err := manager.ToggleMark(ctx, "s1", 0)

		require.ErrorIs(t, err, errRedisDown)
	})

	t.Run("Mutations go through the repository update", func(t *testing.T) {
		// Given: a repository holding a 2x2 session
		repo := newMockSessionRepo(t)
		manager := NewSessionManager(newTestLogger(), repo)

		session, err := entity.NewSession("s1", entity.SessionConfig{Size: 2})
		require.NoError(t, err)
		repo.On("Update", mock.Anything, "s1").Return(session, nil).Once()

		// When: toggling a mark
		updated, err := manager.ToggleMark(ctx, "s1", 3)

		// Then: the change was applied inside Update, no separate read or write happened
		require.NoError(t, err)
		assert.True(t, updated.Marks.Has(3))
		repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "CreateOrUpdate", mock.Anything, mock.Anything)
	})
}

func TestSessionManager_Resets(t *testing.T) {
	ctx := context.Background()

	t.Run("ResetMarks keeps configuration", func(t *testing.T) {
		manager := newTestManager()
		created, err := manager.Create(ctx, entity.SessionConfig{Name: "keep", Size: 2, Items: []string{"a"}})
		require.NoError(t, err)
		_, err = manager.ToggleMark(ctx, created.ID, 0)
		require.NoError(t, err)

		session, err := manager.ResetMarks(ctx, created.ID)

		require.NoError(t, err)
		assert.Empty(t, session.Marks)
		assert.Equal(t, "keep", session.Name)
		assert.Equal(t, "a", session.Items[0])
	})

	t.Run("ResetSession restores defaults on the same id", func(t *testing.T) {
		manager := newTestManager()
		created, err := manager.Create(ctx, entity.SessionConfig{Name: "gone", Size: 2, Items: []string{"a"}})
		require.NoError(t, err)

		session, err := manager.ResetSession(ctx, created.ID)

		require.NoError(t, err)
		assert.Equal(t, created.ID, session.ID)
		assert.Empty(t, session.Name)
		assert.Equal(t, entity.DefaultSize, session.Size)
		assert.Equal(t, make([]string, entity.DefaultSize*entity.DefaultSize), session.Items)

		fetched, err := manager.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, session, fetched)
	})

	t.Run("Resets of unknown ids are not found", func(t *testing.T) {
		manager := newTestManager()

		_, err := manager.ResetMarks(ctx, "missing")
		require.ErrorIs(t, err, apperror.ErrNotFound)

		_, err = manager.ResetSession(ctx, "missing")
		require.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestSessionManager_View(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager()

	created, err := manager.Create(ctx, entity.SessionConfig{Size: 2})
	require.NoError(t, err)

	view, err := manager.View(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, view.HasBingo)
	assert.Empty(t, view.Lines)

	_, err = manager.ToggleMark(ctx, created.ID, 0)
	require.NoError(t, err)
	_, err = manager.ToggleMark(ctx, created.ID, 1)
	require.NoError(t, err)

	view, err = manager.View(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, view.HasBingo)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, []int{0, 1}, view.Lines[0].Indices)
}
