package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/communityweb/strtracker/internal/common"
	"github.com/communityweb/strtracker/internal/domain"
	"github.com/communityweb/strtracker/internal/repository"
	pkglogger "github.com/communityweb/strtracker/pkg/logger"
	"github.com/communityweb/strtracker/pkg/storage"
)

// maxNameVersions bounds the base_vN.ext collision scheme
const maxNameVersions = 999

// presignExpiry is the lifetime of direct download URLs
const presignExpiry = 15 * time.Minute

// HistoryService manages the append-only text/file log of a report
type HistoryService struct {
	repo      repository.HistoryRepository
	files     storage.FileStore
	maxUpload int64
	now       func() time.Time
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(repo repository.HistoryRepository, files storage.FileStore, maxUpload int64) *HistoryService {
	return &HistoryService{
		repo:      repo,
		files:     files,
		maxUpload: maxUpload,
		now:       time.Now,
	}
}

// CanPost reports whether actor may add history to the report.
// Developers always may; other logged-in users only while the report is open.
func (s *HistoryService) CanPost(actor domain.Actor, report *domain.Report) bool {
	if actor.IsDeveloper() {
		return true
	}
	return actor.IsLoggedIn() && report.Status.IsOpen()
}

func (s *HistoryService) checkPost(actor domain.Actor, report *domain.Report) error {
	if report == nil || report.ID <= 0 {
		return domain.ErrReportNotFound
	}
	if s.CanPost(actor, report) {
		return nil
	}
	if !actor.IsLoggedIn() {
		return common.ErrUnauthorized
	}
	return common.ErrForbidden
}

// AddText posts a text entry after checking permissions
func (s *HistoryService) AddText(ctx context.Context, actor domain.Actor, report *domain.Report, content string) (*domain.ReportText, error) {
	if err := s.checkPost(actor, report); err != nil {
		return nil, err
	}
	return s.addText(ctx, actor, report, content)
}

// addText skips the permission check; report creation uses it for the initial text
func (s *HistoryService) addText(ctx context.Context, actor domain.Actor, report *domain.Report, content string) (*domain.ReportText, error) {
	if report.ID <= 0 {
		return nil, domain.ErrReportNotFound
	}
	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrEmptyContent
	}

	text := &domain.ReportText{
		StrID:       report.ID,
		IsPublished: true,
		Contents:    content,
		CreateDate:  s.now(),
		CreateUser:  actor.Username,
	}
	if err := s.repo.CreateText(ctx, text); err != nil {
		return nil, fmt.Errorf("create text entry: %w", err)
	}
	historyEntries.WithLabelValues(string(domain.EntryText)).Inc()
	return text, nil
}

// AddFile stores an attachment and records it after checking permissions
func (s *HistoryService) AddFile(ctx context.Context, actor domain.Actor, report *domain.Report, upload *domain.Upload) (*domain.ReportFile, error) {
	if err := s.checkPost(actor, report); err != nil {
		return nil, err
	}
	return s.addFile(ctx, actor, report, upload)
}

func (s *HistoryService) addFile(ctx context.Context, actor domain.Actor, report *domain.Report, upload *domain.Upload) (*domain.ReportFile, error) {
	if report.ID <= 0 {
		return nil, domain.ErrReportNotFound
	}
	if upload == nil || !storage.ValidFilename(upload.Filename) {
		return nil, domain.ErrInvalidFilename
	}
	if s.maxUpload > 0 && upload.Size > s.maxUpload {
		return nil, domain.ErrFileTooLarge
	}

	name, err := s.uniqueName(ctx, report.ID, upload.Filename)
	if err != nil {
		return nil, err
	}

	// the object is written first so no row ever points at a missing file
	key := storage.ReportKey(report.ID, name)
	body := &limitReader{r: upload.Body, remaining: s.maxUpload}
	if err := s.files.Put(ctx, key, body, contentType(name, upload.ContentType), upload.Size); err != nil {
		if errors.Is(err, domain.ErrFileTooLarge) {
			_ = s.files.Delete(ctx, key)
			return nil, domain.ErrFileTooLarge
		}
		return nil, fmt.Errorf("store attachment: %w", err)
	}

	file := &domain.ReportFile{
		StrID:       report.ID,
		IsPublished: true,
		Filename:    name,
		CreateDate:  s.now(),
		CreateUser:  actor.Username,
	}
	if err := s.repo.CreateFile(ctx, file); err != nil {
		if delErr := s.files.Delete(ctx, key); delErr != nil {
			log := pkglogger.WithReport(report.ID)
			log.Warn().Err(delErr).Str("key", key).Msg("orphaned attachment left in storage")
		}
		return nil, fmt.Errorf("create file entry: %w", err)
	}
	historyEntries.WithLabelValues(string(domain.EntryFile)).Inc()
	return file, nil
}

// uniqueName returns name, or base_v2.ext .. base_v999.ext when taken
func (s *HistoryService) uniqueName(ctx context.Context, reportID int, name string) (string, error) {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)

	candidate := name
	for v := 1; v <= maxNameVersions; v++ {
		if v > 1 {
			candidate = fmt.Sprintf("%s_v%d%s", base, v, ext)
		}
		taken, err := s.nameTaken(ctx, reportID, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", domain.ErrTooManyVersions
}

func (s *HistoryService) nameTaken(ctx context.Context, reportID int, name string) (bool, error) {
	exists, err := s.repo.FileExists(ctx, reportID, name)
	if err != nil || exists {
		return exists, err
	}
	return s.files.Exists(ctx, storage.ReportKey(reportID, name))
}

// Search returns the report's history; unpublished entries are hidden from non-developers
func (s *HistoryService) Search(ctx context.Context, actor domain.Actor, reportID int) ([]domain.HistoryEntry, error) {
	entries, err := s.repo.Search(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if actor.IsDeveloper() {
		return entries, nil
	}
	visible := entries[:0]
	for _, e := range entries {
		if e.IsPublished {
			visible = append(visible, e)
		}
	}
	return visible, nil
}

// SetTextVisibility hides or shows a text entry (developer moderation)
func (s *HistoryService) SetTextVisibility(ctx context.Context, actor domain.Actor, reportID, textID int, published bool) error {
	if !actor.IsDeveloper() {
		return common.ErrForbidden
	}
	text, err := s.repo.FindText(ctx, textID)
	if err != nil {
		return err
	}
	if text.StrID != reportID {
		return domain.ErrEntryNotFound
	}
	return s.repo.SetTextPublished(ctx, textID, published)
}

// SetFileVisibility hides or shows a file entry (developer moderation)
func (s *HistoryService) SetFileVisibility(ctx context.Context, actor domain.Actor, reportID, fileID int, published bool) error {
	if !actor.IsDeveloper() {
		return common.ErrForbidden
	}
	file, err := s.repo.FindFile(ctx, fileID)
	if err != nil {
		return err
	}
	if file.StrID != reportID {
		return domain.ErrEntryNotFound
	}
	return s.repo.SetFilePublished(ctx, fileID, published)
}

// FindFile resolves a visible attachment of the report by name
func (s *HistoryService) FindFile(ctx context.Context, actor domain.Actor, report *domain.Report, filename string) (*domain.ReportFile, error) {
	if !storage.ValidFilename(filename) {
		return nil, domain.ErrEntryNotFound
	}
	file, err := s.repo.FindFileByName(ctx, report.ID, filename)
	if err != nil {
		return nil, err
	}
	if !file.IsPublished && !actor.IsDeveloper() {
		return nil, domain.ErrEntryNotFound
	}
	return file, nil
}

// OpenFile reads an attachment back; the caller closes Body
func (s *HistoryService) OpenFile(ctx context.Context, file *domain.ReportFile) (*domain.FileDownload, error) {
	body, err := s.files.Get(ctx, storage.ReportKey(file.StrID, file.Filename))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain.FileDownload{
		Filename:    file.Filename,
		ContentType: contentType(file.Filename, ""),
		Body:        body,
	}, nil
}

// DirectURL returns a storage URL for the attachment when the store can presign;
// an empty string means the file must be streamed through OpenFile
func (s *HistoryService) DirectURL(ctx context.Context, file *domain.ReportFile) (string, error) {
	p, ok := s.files.(storage.Presigner)
	if !ok {
		return "", nil
	}
	return p.PresignedURL(ctx, storage.ReportKey(file.StrID, file.Filename), presignExpiry)
}

func contentType(name, declared string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}

// limitReader fails with ErrFileTooLarge instead of silently truncating
type limitReader struct {
	r         io.Reader
	remaining int64
	read      int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.r == nil {
		return 0, io.EOF
	}
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.remaining > 0 && l.read > l.remaining {
		return n, domain.ErrFileTooLarge
	}
	return n, err
}
