package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/communityweb/strtracker/internal/domain"
	"gorm.io/gorm"
)

// HistoryRepository stores the text posts and file attachments of a report
type HistoryRepository interface {
	CreateText(ctx context.Context, text *domain.ReportText) error
	CreateFile(ctx context.Context, file *domain.ReportFile) error
	FindText(ctx context.Context, id int) (*domain.ReportText, error)
	FindFile(ctx context.Context, id int) (*domain.ReportFile, error)
	FindFileByName(ctx context.Context, strID int, filename string) (*domain.ReportFile, error)
	FileExists(ctx context.Context, strID int, filename string) (bool, error)
	SetTextPublished(ctx context.Context, id int, published bool) error
	SetFilePublished(ctx context.Context, id int, published bool) error
	// Search merges both tables into one list ordered by create_date, then id
	Search(ctx context.Context, strID int) ([]domain.HistoryEntry, error)
}

type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new HistoryRepository
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) CreateText(ctx context.Context, text *domain.ReportText) error {
	return r.db.WithContext(ctx).Create(text).Error
}

func (r *historyRepository) CreateFile(ctx context.Context, file *domain.ReportFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *historyRepository) FindText(ctx context.Context, id int) (*domain.ReportText, error) {
	var text domain.ReportText
	if err := r.db.WithContext(ctx).First(&text, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &text, nil
}

func (r *historyRepository) FindFile(ctx context.Context, id int) (*domain.ReportFile, error) {
	var file domain.ReportFile
	if err := r.db.WithContext(ctx).First(&file, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &file, nil
}

func (r *historyRepository) FindFileByName(ctx context.Context, strID int, filename string) (*domain.ReportFile, error) {
	var file domain.ReportFile
	err := r.db.WithContext(ctx).
		Where("str_id = ? AND filename = ?", strID, filename).
		Order("id DESC").
		First(&file).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &file, nil
}

func (r *historyRepository) FileExists(ctx context.Context, strID int, filename string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.ReportFile{}).
		Where("str_id = ? AND filename = ?", strID, filename).
		Count(&count).Error
	return count > 0, err
}

func (r *historyRepository) SetTextPublished(ctx context.Context, id int, published bool) error {
	return setPublished(r.db.WithContext(ctx), &domain.ReportText{}, id, published)
}

func (r *historyRepository) SetFilePublished(ctx context.Context, id int, published bool) error {
	return setPublished(r.db.WithContext(ctx), &domain.ReportFile{}, id, published)
}

func setPublished(db *gorm.DB, model interface{}, id int, published bool) error {
	result := db.Model(model).Where("id = ?", id).Update("is_published", published)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	// MySQL reports 0 affected rows when the value is unchanged
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *historyRepository) Search(ctx context.Context, strID int) ([]domain.HistoryEntry, error) {
	var (
		texts []domain.ReportText
		files []domain.ReportFile
	)
	db := r.db.WithContext(ctx)
	if err := db.Where("str_id = ?", strID).Find(&texts).Error; err != nil {
		return nil, err
	}
	if err := db.Where("str_id = ?", strID).Find(&files).Error; err != nil {
		return nil, err
	}

	entries := make([]domain.HistoryEntry, 0, len(texts)+len(files))
	for i := range texts {
		entries = append(entries, texts[i].Entry())
	}
	for i := range files {
		entries = append(entries, files[i].Entry())
	}
	// ids only order rows within one table; on equal timestamps a text
	// precedes a file, the order a combined post writes them in
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.CreateDate.Equal(b.CreateDate) {
			return a.CreateDate.Before(b.CreateDate)
		}
		if a.Kind != b.Kind {
			return a.Kind == domain.EntryText
		}
		return a.ID < b.ID
	})
	return entries, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrEntryNotFound
	}
	return err
}
