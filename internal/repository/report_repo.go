package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/communityweb/strtracker/internal/domain"
	"github.com/communityweb/strtracker/internal/query"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportRepository report data access interface
type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
	Update(ctx context.Context, report *domain.Report) error
	FindByID(ctx context.Context, id int) (*domain.Report, error)
	// FindByIDs returns the reports in the order of ids, skipping missing ones
	FindByIDs(ctx context.Context, ids []int) ([]*domain.Report, error)
	Exists(ctx context.Context, id int) (bool, error)
	// Search returns matching ids; a nil predicate matches every report
	Search(ctx context.Context, pred query.Node, order []query.OrderBy) ([]int, error)
	DistinctValues(ctx context.Context, column string) ([]string, error)
	// Transaction runs fn with a repository bound to one database transaction
	Transaction(ctx context.Context, fn func(tx ReportRepository) error) error
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// Create inserts a report; gorm assigns the new id
func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

// Update writes every column except the creation provenance (last write wins)
func (r *reportRepository) Update(ctx context.Context, report *domain.Report) error {
	return r.db.WithContext(ctx).
		Model(report).
		Select("*").
		Omit("id", "create_date", "create_user").
		Updates(report).Error
}

// FindByID finds a report by id
func (r *reportRepository) FindByID(ctx context.Context, id int) (*domain.Report, error) {
	var report domain.Report
	err := r.db.WithContext(ctx).First(&report, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// FindByIDs batch-loads reports keeping the caller's order (N+1 방지)
func (r *reportRepository) FindByIDs(ctx context.Context, ids []int) ([]*domain.Report, error) {
	if len(ids) == 0 {
		return []*domain.Report{}, nil
	}

	var rows []*domain.Report
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	byID := make(map[int]*domain.Report, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	result := make([]*domain.Report, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			result = append(result, row)
		}
	}
	return result, nil
}

// Exists reports whether a report with this id is stored
func (r *reportRepository) Exists(ctx context.Context, id int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Report{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Search renders the predicate tree into bound SQL and returns the ordered ids
func (r *reportRepository) Search(ctx context.Context, pred query.Node, order []query.OrderBy) ([]int, error) {
	q := r.db.WithContext(ctx).Model(&domain.Report{})

	if pred != nil {
		expr, err := renderPredicate(pred)
		if err != nil {
			return nil, fmt.Errorf("render search predicate: %w", err)
		}
		q = q.Where(expr)
	}

	for _, o := range order {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Field}, Desc: o.Desc})
	}

	var ids []int
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// distinctColumns limits DistinctValues to form-list columns
var distinctColumns = map[string]bool{
	query.FieldSubsystem:  true,
	query.FieldStrVersion: true,
	query.FieldFixVersion: true,
}

// DistinctValues lists non-empty values in use for a column, sorted ascending
func (r *reportRepository) DistinctValues(ctx context.Context, column string) ([]string, error) {
	if !distinctColumns[column] {
		return nil, fmt.Errorf("column %q is not listable", column)
	}

	var values []string
	err := r.db.WithContext(ctx).
		Model(&domain.Report{}).
		Where(clause.Neq{Column: clause.Column{Name: column}, Value: ""}).
		Distinct(column).
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}}).
		Pluck(column, &values).Error
	return values, err
}

// Transaction runs fn inside db.Transaction; any error rolls back every write
func (r *reportRepository) Transaction(ctx context.Context, fn func(tx ReportRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&reportRepository{db: tx})
	})
}
