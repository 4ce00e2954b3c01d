package service

import (
	"context"
	"errors"
	"testing"

	"github.com/communityweb/strtracker/internal/common"
	"github.com/communityweb/strtracker/internal/domain"
	"github.com/communityweb/strtracker/internal/repository"
	"github.com/communityweb/strtracker/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock UserRepository ---

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByName(ctx context.Context, name string) (*domain.User, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.Called(user).Error(0)
}

func (m *mockUserRepo) EmailsByNames(ctx context.Context, names []string) (map[string]string, error) {
	args := m.Called(names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func hashPassword(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	manager := jwt.NewManager("test-secret", 3600)
	repo := new(mockUserRepo)
	svc := NewAuthService(repo, manager)

	repo.On("FindByName", "bob").Return(&domain.User{
		Name: "bob", Email: "bob@example.com", Level: domain.LevelDeveloper,
		Hash: hashPassword(t, "secret"), IsPublished: true,
	}, nil)
	repo.On("FindByName", "disabled").Return(&domain.User{
		Name: "disabled", Hash: hashPassword(t, "secret"),
	}, nil)
	repo.On("FindByName", "ghost").Return(nil, repository.ErrUserNotFound)
	repo.On("FindByName", "broken").Return(nil, errors.New("db down"))

	resp, err := svc.Login(ctx, "bob", "secret")
	require.NoError(t, err)
	assert.Equal(t, "bob", resp.Username)
	assert.Equal(t, domain.LevelDeveloper, resp.Level)
	assert.Equal(t, 3600, resp.ExpiresIn)

	claims, err := manager.VerifyToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.Username)
	assert.Equal(t, "bob@example.com", claims.Email)

	_, err = svc.Login(ctx, "bob", "wrong")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "disabled", "secret")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "ghost", "secret")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "broken", "secret")
	assert.EqualError(t, err, "db down")
}

func TestAuthService_CreateUser(t *testing.T) {
	ctx := context.Background()
	repo := new(mockUserRepo)
	svc := NewAuthService(repo, jwt.NewManager("s", 60))

	repo.On("Create", mock.AnythingOfType("*domain.User")).Return(nil)

	u, err := svc.CreateUser(ctx, " admin ", "admin@example.com", "pw", domain.LevelAdmin)
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Name)
	assert.True(t, u.IsPublished)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte("pw")))

	_, err = svc.CreateUser(ctx, "", "", "pw", 1)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
