package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/communityweb/strtracker/internal/common"
	"github.com/communityweb/strtracker/internal/domain"
	"github.com/communityweb/strtracker/internal/query"
	"github.com/communityweb/strtracker/internal/repository"
	"github.com/communityweb/strtracker/pkg/cache"
	pkglogger "github.com/communityweb/strtracker/pkg/logger"
)

// form list names
const (
	listVersions   = "versions"
	listSubsystems = "subsystems"
)

// ReportService handles the STR lifecycle
type ReportService struct {
	repo     repository.ReportRepository
	history  *HistoryService
	notifier Notifier
	cache    cache.Service
	now      func() time.Time
}

// NewReportService creates a new ReportService; cacheSvc may wrap a nil client
func NewReportService(
	repo repository.ReportRepository,
	history *HistoryService,
	notifier Notifier,
	cacheSvc cache.Service,
) *ReportService {
	return &ReportService{
		repo:     repo,
		history:  history,
		notifier: notifier,
		cache:    cacheSvc,
		now:      time.Now,
	}
}

// Validate checks the report; field failures come back as *domain.ValidationError
func (s *ReportService) Validate(ctx context.Context, r *domain.Report) error {
	return validateWith(ctx, s.repo, r)
}

func validateWith(ctx context.Context, repo repository.ReportRepository, r *domain.Report) error {
	var lookupErr error
	masterExists := func(id int) bool {
		ok, err := repo.Exists(ctx, id)
		if err != nil {
			lookupErr = err
		}
		return ok
	}
	fields := r.Validate(masterExists)
	if lookupErr != nil {
		return fmt.Errorf("check master STR: %w", lookupErr)
	}
	return fields.AsError()
}

// Save persists the report: insert when ID is 0, otherwise update.
// It never validates; callers do that first.
func (s *ReportService) Save(ctx context.Context, actor domain.Actor, r *domain.Report) error {
	if err := s.saveWith(ctx, s.repo, actor, r); err != nil {
		return err
	}
	s.invalidate(ctx, r.ID)
	return nil
}

func (s *ReportService) saveWith(ctx context.Context, repo repository.ReportRepository, actor domain.Actor, r *domain.Report) error {
	now := s.now()
	r.ModifyDate = now
	r.ModifyUser = actor.Username

	if r.ID == 0 {
		r.CreateDate = now
		r.CreateUser = actor.Username
		if err := repo.Create(ctx, r); err != nil {
			return fmt.Errorf("insert STR: %w", err)
		}
		reportsSaved.WithLabelValues("create").Inc()
		return nil
	}

	if err := repo.Update(ctx, r); err != nil {
		return fmt.Errorf("update STR #%d: %w", r.ID, err)
	}
	reportsSaved.WithLabelValues("update").Inc()
	return nil
}

// Load reads a report by id, through the cache when one is configured
func (s *ReportService) Load(ctx context.Context, id int) (*domain.Report, error) {
	var cached domain.Report
	if err := s.cache.GetReport(ctx, id, &cached); err == nil {
		return &cached, nil
	}

	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetReport(ctx, id, r); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Int("str_id", id).Msg("cache report failed")
	}
	return r, nil
}

// Get loads a report the actor may see; hidden reports look missing
func (s *ReportService) Get(ctx context.Context, actor domain.Actor, id int) (*domain.Report, error) {
	r, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.VisibleTo(actor) {
		return nil, domain.ErrReportNotFound
	}
	return r, nil
}

// Create files a new STR. Only developers may set triage fields; the initial
// text and file are attached after the report is committed.
func (s *ReportService) Create(ctx context.Context, actor domain.Actor, req *domain.CreateReportRequest, upload *domain.Upload) (*domain.Report, error) {
	if !actor.IsLoggedIn() {
		return nil, common.ErrUnauthorized
	}

	r := domain.NewReport()
	r.Summary = strings.TrimSpace(req.Summary)
	r.Priority = domain.Priority(req.Priority)
	r.Scope = domain.Scope(req.Scope)
	r.StrVersion = strings.TrimSpace(req.StrVersion)

	if actor.IsDeveloper() {
		r.Subsystem = strings.TrimSpace(req.Subsystem)
		r.ManagerUser = strings.TrimSpace(req.ManagerUser)
		r.FixVersion = strings.TrimSpace(req.FixVersion)
		if req.Status != 0 {
			r.Status = domain.Status(req.Status)
		}
		if req.IsPublished != nil {
			r.IsPublished = *req.IsPublished
		}
	}

	if err := s.Validate(ctx, r); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, actor, r); err != nil {
		return nil, err
	}

	n, err := s.attach(ctx, actor, r, req.Contents, upload, false)
	if err != nil {
		return r, err
	}
	n.SubjectPrefix = ""
	s.notifier.Notify(ctx, n)
	return r, nil
}

// Update applies a partial edit. Field edits are developer-only; any poster
// may add text or a file while the report is open. The report is saved before
// attachments are written, and stays saved if an attachment fails.
func (s *ReportService) Update(ctx context.Context, actor domain.Actor, id int, req *domain.UpdateReportRequest, upload *domain.Upload) (*domain.Report, error) {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	editing := req.HasFieldEdits()
	posting := strings.TrimSpace(req.Contents) != "" || upload != nil
	switch {
	case !actor.IsLoggedIn():
		return nil, common.ErrUnauthorized
	case editing && !actor.IsDeveloper():
		return nil, common.ErrForbidden
	case !editing && !posting:
		return nil, common.ErrInvalidInput
	case !editing && !s.history.CanPost(actor, r):
		return nil, common.ErrForbidden
	}

	if editing {
		req.ApplyTo(r)
		if err := s.Validate(ctx, r); err != nil {
			return nil, err
		}
	}
	if err := s.Save(ctx, actor, r); err != nil {
		return nil, err
	}

	n, err := s.attach(ctx, actor, r, req.Contents, upload, true)
	if err != nil {
		return r, err
	}
	if req.ShouldNotify() {
		s.notifier.Notify(ctx, n)
	}
	return r, nil
}

// BatchUpdate applies one partial edit to many reports in a single
// transaction. Any validation or write failure rolls back the whole batch;
// texts and notifications follow the commit.
func (s *ReportService) BatchUpdate(ctx context.Context, actor domain.Actor, req *domain.BatchUpdateRequest) ([]*domain.Report, error) {
	if !actor.IsDeveloper() {
		return nil, common.ErrForbidden
	}
	if len(req.IDs) == 0 {
		return nil, common.ErrInvalidInput
	}

	var updated []*domain.Report
	err := s.repo.Transaction(ctx, func(tx repository.ReportRepository) error {
		seen := make(map[int]bool, len(req.IDs))
		for _, id := range req.IDs {
			if seen[id] {
				continue
			}
			seen[id] = true

			r, err := tx.FindByID(ctx, id)
			if err != nil {
				return fmt.Errorf("STR #%d: %w", id, err)
			}
			req.ApplyTo(r)
			if err := validateWith(ctx, tx, r); err != nil {
				return fmt.Errorf("STR #%d: %w", id, err)
			}
			if err := s.saveWith(ctx, tx, actor, r); err != nil {
				return err
			}
			updated = append(updated, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(updated))
	for _, r := range updated {
		ids = append(ids, r.ID)
	}
	s.invalidate(ctx, ids...)

	// a failed text does not stop the rest of the batch; the first failure is returned
	var firstErr error
	for _, r := range updated {
		n := Notice{Report: r, SubjectPrefix: SubjectReply}
		if strings.TrimSpace(req.Contents) != "" {
			if _, err := s.history.addText(ctx, actor, r, req.Contents); err != nil {
				if firstErr == nil {
					firstErr = &domain.AttachmentError{ReportID: r.ID, Err: err}
				}
			} else {
				n.Content = req.Contents
			}
		}
		if req.ShouldNotify() {
			s.notifier.Notify(ctx, n)
		}
	}
	return updated, firstErr
}

// attach posts the optional text and file. checkPerm is false for the
// initial post of a new report, which a reporter may always make.
func (s *ReportService) attach(ctx context.Context, actor domain.Actor, r *domain.Report, content string, upload *domain.Upload, checkPerm bool) (Notice, error) {
	n := Notice{Report: r, SubjectPrefix: SubjectReply}

	if strings.TrimSpace(content) != "" {
		var err error
		if checkPerm {
			_, err = s.history.AddText(ctx, actor, r, content)
		} else {
			_, err = s.history.addText(ctx, actor, r, content)
		}
		if err != nil {
			return n, &domain.AttachmentError{ReportID: r.ID, Err: err}
		}
		n.Content = content
	}

	if upload != nil {
		var (
			f   *domain.ReportFile
			err error
		)
		if checkPerm {
			f, err = s.history.AddFile(ctx, actor, r, upload)
		} else {
			f, err = s.history.addFile(ctx, actor, r, upload)
		}
		if err != nil {
			return n, &domain.AttachmentError{ReportID: r.ID, Err: err}
		}
		n.File = f
	}
	return n, nil
}

// ListVersions returns the affected versions already in use
func (s *ReportService) ListVersions(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, listVersions, query.FieldStrVersion)
}

// ListSubsystems returns the subsystems already in use
func (s *ReportService) ListSubsystems(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, listSubsystems, query.FieldSubsystem)
}

func (s *ReportService) distinct(ctx context.Context, name, column string) ([]string, error) {
	if values, err := s.cache.GetList(ctx, name); err == nil {
		return values, nil
	}
	values, err := s.repo.DistinctValues(ctx, column)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	if err := s.cache.SetList(ctx, name, values); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Str("list", name).Msg("cache list failed")
	}
	return values, nil
}

func (s *ReportService) invalidate(ctx context.Context, ids ...int) {
	log := pkglogger.GetLogger()
	if err := s.cache.InvalidateReport(ctx, ids...); err != nil {
		log.Warn().Err(err).Ints("str_ids", ids).Msg("invalidate report cache failed")
	}
	if err := s.cache.InvalidateLists(ctx); err != nil && !errors.Is(err, cache.ErrUnavailable) {
		log.Warn().Err(err).Msg("invalidate list cache failed")
	}
}
