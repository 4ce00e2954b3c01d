package repository

import (
	"context"
	"errors"
	"time"

	"github.com/communityweb/strtracker/internal/domain"
	"gorm.io/gorm"
)

// ErrUserNotFound is returned when no account has the given name
var ErrUserNotFound = errors.New("user not found")

// UserRepository user data access interface
type UserRepository interface {
	FindByName(ctx context.Context, name string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	// EmailsByNames resolves usernames to their mail address (unknown names are omitted)
	EmailsByNames(ctx context.Context, names []string) (map[string]string, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByName(ctx context.Context, name string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now()
	if user.CreateDate.IsZero() {
		user.CreateDate = now
	}
	if user.ModifyDate.IsZero() {
		user.ModifyDate = now
	}
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) EmailsByNames(ctx context.Context, names []string) (map[string]string, error) {
	result := make(map[string]string, len(names))
	if len(names) == 0 {
		return result, nil
	}
	var users []domain.User
	if err := r.db.WithContext(ctx).
		Select("name", "email").
		Where("name IN ?", names).
		Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Email != "" {
			result[u.Name] = u.Email
		}
	}
	return result, nil
}
