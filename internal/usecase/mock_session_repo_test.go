package usecase

import (
	"context"
	"testing"

	"github.com/rocketscienceinc/bingo-backend/internal/entity"
	"github.com/stretchr/testify/mock"
)

type mockSessionRepo struct {
	mock.Mock
}

func newMockSessionRepo(t *testing.T) *mockSessionRepo {
	t.Helper()

	repo := &mockSessionRepo{}
	repo.Test(t)
	t.Cleanup(func() { repo.AssertExpectations(t) })

	return repo
}

func (that *mockSessionRepo) CreateOrUpdate(ctx context.Context, session *entity.Session) error {
	args := that.Called(ctx, session)
	return args.Error(0)
}

func (that *mockSessionRepo) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	args := that.Called(ctx, id)

	session, _ := args.Get(0).(*entity.Session)
	return session, args.Error(1)
}

// Update applies change to the session the expectation returns, like a real repository would.
func (that *mockSessionRepo) Update(ctx context.Context, id string, change func(*entity.Session) error) (*entity.Session, error) {
	args := that.Called(ctx, id)

	session, _ := args.Get(0).(*entity.Session)
	if err := args.Error(1); err != nil {
		return nil, err
	}

	if err := change(session); err != nil {
		return nil, err
	}

	return session, nil
}
