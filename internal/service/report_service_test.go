package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/communityweb/strtracker/internal/common"
	"github.com/communityweb/strtracker/internal/domain"
	"github.com/communityweb/strtracker/internal/repository"
	"github.com/communityweb/strtracker/pkg/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestReportService_SaveInsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t, nil)

	r := domain.NewReport()
	r.Summary = "crash"
	r.StrVersion = "1.4"
	require.NoError(t, env.reports.Save(ctx, reporter, r))
	assert.NotZero(t, r.ID)
	assert.Equal(t, "alice", r.CreateUser)
	assert.False(t, r.CreateDate.IsZero())
	created := r.CreateDate

	time.Sleep(5 * time.Millisecond)
	r.Summary = "crash on exit"
	require.NoError(t, env.reports.Save(ctx, developer, r))

	got, err := env.reports.Load(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "crash on exit", got.Summary)
	assert.Equal(t, "alice", got.CreateUser)
	assert.Equal(t, "bob", got.ModifyUser)
	assert.WithinDuration(t, created, got.CreateDate, time.Millisecond)
	assert.True(t, got.ModifyDate.After(got.CreateDate))
}

func TestReportService_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t, nil)
	master := env.newReport(t, developer, nil)

	r := env.newReport(t, developer, func(r *domain.Report) {
		r.MasterID = master.ID
		r.IsPublished = false
		r.Status = domain.StatusResolved
		r.Priority = domain.PriorityRFE
		r.Scope = domain.ScopeOS
		r.Subsystem = "printing"
		r.StrVersion = "1.5-feature"
		r.FixVersion = "1.5.1"
		r.FixRevision = "4711"
		r.ManagerUser = "bob"
	})

	got, err := env.reports.Load(ctx, r.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, r.CreateDate, got.CreateDate, time.Second)
	assert.WithinDuration(t, r.ModifyDate, got.ModifyDate, time.Second)
	got.CreateDate, got.ModifyDate = r.CreateDate, r.ModifyDate
	assert.Equal(t, r, got)

	_, err = env.reports.Load(ctx, 4242)
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestReportService_ValidateMaster(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t, nil)
	r := env.newReport(t, developer, nil)

	r.MasterID = 999
	err := env.reports.Validate(ctx, r)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"master_id"}, verr.Fields.Fields())

	r.MasterID = r.ID
	assert.Error(t, env.reports.Validate(ctx, r))
}

func TestReportService_CreateByReporter(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t, nil)

	r, err := env.reports.Create(ctx, reporter, &domain.CreateReportRequest{
		Summary:     "  Toolbar icons blurry ",
		Priority:    int8(domain.PriorityLow),
		Scope:       int8(domain.ScopeOS),
		StrVersion:  "1.4",
		Contents:    "Steps to reproduce...",
		Subsystem:   "ignored",
		ManagerUser: "ignored",
		Status:      int8(domain.StatusActive),
		IsPublished: ptr(false),
	}, &domain.Upload{Filename: "shot.txt", Body: strings.NewReader("pixels"), Size: 6})
	require.NoError(t, err)

	assert.Equal(t, "Toolbar icons blurry", r.Summary)
	assert.Equal(t, domain.StatusNew, r.Status)
	assert.Empty(t, r.Subsystem)
	assert.Empty(t, r.ManagerUser)
	assert.True(t, r.IsPublished)
	assert.Equal(t, "alice", r.CreateUser)

	entries, err := env.history.Search(ctx, developer, r.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EntryText, entries[0].Kind)
	assert.Equal(t, domain.EntryFile, entries[1].Kind)

	sent := env.sender.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "STR #1: Toolbar icons blurry", sent[0].Subject)
	assert.Equal(t, []string{"project@example.com"}, sent[0].To)
	require.Len(t, sent[0].Attachments, 1)
}

func TestReportService_CreateByDeveloper(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t, nil)

	r, err := env.reports.Create(ctx, developer, &domain.CreateReportRequest{
		Summary:     "Leak in parser",
		Priority:    int8(domain.PriorityHigh),
		Scope:       int8(domain.ScopeAll),
		StrVersion:  "1.4",
		Subsystem:   "parser",
		ManagerUser: "carol",
		Status:      int8(domain.StatusActive),
		IsPublished: ptr(false),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, r.Status)
	assert.Equal(t, "carol", r.ManagerUser)
	assert.False(t, r.IsPublished)
}

func TestReportService_CreateRejects(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t, nil)

	_, err := env.reports.Create(ctx, domain.Anonymous, &domain.CreateReportRequest{Summary: "x"}, nil)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = env.reports.Create(ctx, reporter, &domain.CreateReportRequest{
		Summary:    "Add dark mode",
		Priority:   int8(domain.PriorityRFE),
		Scope:      int8(domain.ScopeAll),
		StrVersion: "1.4",
	}, nil)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "str_version")

	var count int64
	env.db.Model(&domain.Report{}).Count(&count)
	assert.Zero(t, count)
	assert.Empty(t, env.sender.sent())
}

func TestReportService_UpdatePermissions(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t, nil)
	r := env.newReport(t, reporter, nil)

	_, err := env.reports.Update(ctx, reporter, r.ID, &domain.UpdateReportRequest{Summary: ptr("mine now")}, nil)
	assert.ErrorIs(t, err, common.ErrForbidden)

	// reporters may post while the report is open, New included
	_, err = env.reports.Update(ctx, reporter, r.ID, &domain.UpdateReportRequest{Contents: "ping"}, nil)
	assert.NoError(t, err)

	closed := env.newReport(t, reporter, func(r *domain.Report) {
		r.Status = domain.StatusUnresolved
		r.Subsystem = "ui"
		r.ManagerUser = "bob"
	})
	_, err = env.reports.Update(ctx, reporter, closed.ID, &domain.UpdateReportRequest{Contents: "ping"}, nil)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = env.reports.Update(ctx, domain.Anonymous, r.ID, &domain.UpdateReportRequest{Contents: "ping"}, nil)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = env.reports.Update(ctx, developer, r.ID, &domain.UpdateReportRequest{}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = env.reports.Update(ctx, developer, 999, &domain.UpdateReportRequest{Contents: "x"}, nil)
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestReportService_UpdateLifecycle(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t, nil)
	r := env.newReport(t, reporter, nil)

	_, err := env.reports.Update(ctx, developer, r.ID, &domain.UpdateReportRequest{Status: ptr(int8(domain.StatusActive))}, nil)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"manager_user", "subsystem"}, verr.Fields.Fields())

	updated, err := env.reports.Update(ctx, developer, r.ID, &domain.UpdateReportRequest{
		Status:      ptr(int8(domain.StatusActive)),
		Subsystem:   ptr("ui"),
		ManagerUser: ptr("bob"),
		Contents:    "Confirmed.",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, updated.Status)

	// now open, the reporter may comment
	_, err = env.reports.Update(ctx, reporter, r.ID, &domain.UpdateReportRequest{Contents: "Thanks!"}, nil)
	require.NoError(t, err)

	got, err := env.reports.Load(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.ModifyUser)

	sent := env.sender.sent()
	require.Len(t, sent, 2)
	assert.True(t, strings.HasPrefix(sent[0].Subject, "Re: STR #"))
	// bob edited his own assignment, so the creator is told
	assert.Equal(t, []string{"alice@example.com"}, sent[0].To)
	// alice commented, so the manager is told
	assert.Equal(t, []string{"bob@example.com"}, sent[1].To)

	_, err = env.reports.Update(ctx, developer, r.ID, &domain.UpdateReportRequest{Contents: "quiet", Notify: ptr(false)}, nil)
	require.NoError(t, err)
	assert.Len(t, env.sender.sent(), 2)
}

func TestReportService_UpdateKeepsReportWhenAttachmentFails(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t, nil)
	r := env.newReport(t, reporter, nil)

	got, err := env.reports.Update(ctx, developer, r.ID,
		&domain.UpdateReportRequest{Summary: ptr("renamed")},
		&domain.Upload{Filename: "../escape.txt", Body: strings.NewReader("x")})

	var aerr *domain.AttachmentError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, r.ID, aerr.ReportID)
	assert.ErrorIs(t, err, domain.ErrInvalidFilename)
	require.NotNil(t, got)

	stored, err := env.reports.Load(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", stored.Summary)
	assert.Empty(t, env.sender.sent())
}

func TestReportService_GetHidesUnpublished(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t, nil)
	r := env.newReport(t, reporter, func(r *domain.Report) { r.IsPublished = false })

	_, err := env.reports.Get(ctx, domain.Anonymous, r.ID)
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
	_, err = env.reports.Get(ctx, domain.Actor{Username: "eve", Level: domain.LevelReporter}, r.ID)
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
	_, err = env.reports.Get(ctx, reporter, r.ID)
	assert.NoError(t, err)
	_, err = env.reports.Get(ctx, developer, r.ID)
	assert.NoError(t, err)
}

func TestReportService_BatchUpdate(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t, nil)
	a := env.newReport(t, reporter, func(r *domain.Report) { r.Subsystem = "ui" })
	b := env.newReport(t, reporter, nil)

	req := &domain.BatchUpdateRequest{IDs: []int{a.ID, b.ID}}
	req.Status = ptr(int8(domain.StatusPending))
	req.ManagerUser = ptr("carol")

	_, err := env.reports.BatchUpdate(ctx, reporter, req)
	assert.ErrorIs(t, err, common.ErrForbidden)

	// b has no subsystem, so the whole batch rolls back
	_, err = env.reports.BatchUpdate(ctx, developer, req)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	gotA, err := env.reports.Load(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, gotA.Status)
	assert.Empty(t, gotA.ManagerUser)
	assert.Empty(t, env.sender.sent())

	req.Subsystem = ptr("core")
	req.Contents = "Triaged in bulk."
	updated, err := env.reports.BatchUpdate(ctx, developer, req)
	require.NoError(t, err)
	require.Len(t, updated, 2)
	for _, id := range []int{a.ID, b.ID} {
		got, err := env.reports.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, got.Status)
		assert.Equal(t, "core", got.Subsystem)
		assert.Equal(t, "carol", got.ManagerUser)

		entries, err := env.history.Search(ctx, developer, id)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	}
	assert.Len(t, env.sender.sent(), 2)

	req.IDs = []int{a.ID, 999}
	_, err = env.reports.BatchUpdate(ctx, developer, req)
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

// textFailRepo fails CreateText for one report
type textFailRepo struct {
	repository.HistoryRepository
	failID int
}

func (r textFailRepo) CreateText(ctx context.Context, text *domain.ReportText) error {
	if text.StrID == r.failID {
		return errors.New("write timeout")
	}
	return r.HistoryRepository.CreateText(ctx, text)
}

func TestReportService_BatchUpdateContinuesAfterTextFailure(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t, nil)
	a := env.newReport(t, reporter, nil)
	b := env.newReport(t, reporter, nil)

	history := NewHistoryService(textFailRepo{repository.NewHistoryRepository(env.db), a.ID}, env.store, 1<<20)
	svc := NewReportService(repository.NewReportRepository(env.db), history, env.notify, cache.NewService(nil))

	req := &domain.BatchUpdateRequest{IDs: []int{a.ID, b.ID}}
	req.Priority = ptr(int8(domain.PriorityHigh))
	req.Contents = "Bumped."
	updated, err := svc.BatchUpdate(ctx, developer, req)
	require.Len(t, updated, 2)

	var attErr *domain.AttachmentError
	require.True(t, errors.As(err, &attErr))
	assert.Equal(t, a.ID, attErr.ReportID)

	entries, err := env.history.Search(ctx, developer, b.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Len(t, env.sender.sent(), 2)
}

func TestReportService_ListsUseCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	env := setupEnv(t, cache.NewService(client))

	env.newReport(t, developer, func(r *domain.Report) {
		r.Subsystem = "ui"
		r.StrVersion = "1.3"
	})
	env.newReport(t, developer, func(r *domain.Report) { r.Subsystem = "core" })

	subs, err := env.reports.ListSubsystems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "ui"}, subs)
	assert.True(t, mr.Exists("strlist:subsystems"))

	versions, err := env.reports.ListVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.3", "1.4"}, versions)

	// a save drops the cached lists
	env.newReport(t, developer, func(r *domain.Report) { r.Subsystem = "net" })
	assert.False(t, mr.Exists("strlist:subsystems"))
	subs, err = env.reports.ListSubsystems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "net", "ui"}, subs)

	// Load fills the report cache
	_, err = env.reports.Load(ctx, 1)
	require.NoError(t, err)
	assert.True(t, mr.Exists("str:1"))
}
