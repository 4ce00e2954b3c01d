package repository

import (
	"context"
	"strings"
	"time"

	"github.com/communityweb/strtracker/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CarbonCopyRepository manages the per-report notification address list
type CarbonCopyRepository interface {
	// Add subscribes email; adding an address twice is a no-op
	Add(ctx context.Context, strID int, email, user string) error
	Remove(ctx context.Context, strID int, email string) error
	ListEmails(ctx context.Context, strID int) ([]string, error)
}

type carbonCopyRepository struct {
	db *gorm.DB
}

// NewCarbonCopyRepository creates a new CarbonCopyRepository
func NewCarbonCopyRepository(db *gorm.DB) CarbonCopyRepository {
	return &carbonCopyRepository{db: db}
}

func (r *carbonCopyRepository) Add(ctx context.Context, strID int, email, user string) error {
	cc := &domain.CarbonCopy{
		StrID:      strID,
		Email:      strings.ToLower(strings.TrimSpace(email)),
		CreateDate: time.Now(),
		CreateUser: user,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(cc).Error
}

func (r *carbonCopyRepository) Remove(ctx context.Context, strID int, email string) error {
	return r.db.WithContext(ctx).
		Where("str_id = ? AND email = ?", strID, strings.ToLower(strings.TrimSpace(email))).
		Delete(&domain.CarbonCopy{}).Error
}

func (r *carbonCopyRepository) ListEmails(ctx context.Context, strID int) ([]string, error) {
	var emails []string
	err := r.db.WithContext(ctx).
		Model(&domain.CarbonCopy{}).
		Where("str_id = ?", strID).
		Order("email").
		Pluck("email", &emails).Error
	return emails, err
}
