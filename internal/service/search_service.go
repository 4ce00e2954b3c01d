package service

import (
	"context"

	"github.com/communityweb/strtracker/internal/domain"
	"github.com/communityweb/strtracker/internal/query"
	"github.com/communityweb/strtracker/internal/repository"
	"github.com/communityweb/strtracker/pkg/ginutil"
)

// maxPageSize bounds one page of the report list
const maxPageSize = 100

// SearchService compiles report queries and pages the matching ids
type SearchService struct {
	repo repository.ReportRepository
}

// NewSearchService creates a new SearchService
func NewSearchService(repo repository.ReportRepository) *SearchService {
	return &SearchService{repo: repo}
}

// Search returns the ordered ids of every report matching opts that actor may see
func (s *SearchService) Search(ctx context.Context, actor domain.Actor, opts domain.SearchOptions) ([]int, error) {
	pred := query.Build(opts, actor)
	return s.repo.Search(ctx, pred, query.ParseOrder(opts.Order))
}

// ReportPage is one hydrated page of search results
type ReportPage struct {
	Reports []*domain.Report
	Page    int
	Limit   int
	Total   int
}

// List runs the search, then loads only the requested page
func (s *SearchService) List(ctx context.Context, actor domain.Actor, q *domain.ReportListQuery) (*ReportPage, error) {
	ids, err := s.Search(ctx, actor, q.Options())
	if err != nil {
		return nil, err
	}

	page, limit, start, end := ginutil.Paginate(q.Page, q.Limit, len(ids), maxPageSize)
	reports, err := s.repo.FindByIDs(ctx, ids[start:end])
	if err != nil {
		return nil, err
	}
	return &ReportPage{
		Reports: reports,
		Page:    page,
		Limit:   limit,
		Total:   len(ids),
	}, nil
}
