package service

import (
	"context"
	"testing"

	"github.com/communityweb/strtracker/internal/domain"
	"github.com/communityweb/strtracker/internal/repository"
	"github.com/communityweb/strtracker/pkg/cache"
	"github.com/communityweb/strtracker/pkg/mailer"
	"github.com/communityweb/strtracker/pkg/storage"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	reporter  = domain.Actor{Username: "alice", Email: "alice@example.com", Level: domain.LevelReporter}
	developer = domain.Actor{Username: "bob", Email: "bob@example.com", Level: domain.LevelDeveloper}
)

// mockSender records outgoing mail
type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg *mailer.Message) error {
	return m.Called(msg).Error(0)
}

// sent returns every message passed to Send
func (m *mockSender) sent() []*mailer.Message {
	var out []*mailer.Message
	for _, call := range m.Calls {
		if call.Method == "Send" {
			out = append(out, call.Arguments.Get(0).(*mailer.Message))
		}
	}
	return out
}

type testEnv struct {
	db       *gorm.DB
	reports  *ReportService
	history  *HistoryService
	notify   *NotifyService
	search   *SearchService
	sender   *mockSender
	store    *storage.LocalStore
	userRepo repository.UserRepository
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&domain.Report{}, &domain.ReportFile{}, &domain.ReportText{},
		&domain.CarbonCopy{}, &domain.User{},
	))
	return db
}

func setupEnv(t *testing.T, cacheSvc cache.Service) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	if cacheSvc == nil {
		cacheSvc = cache.NewService(nil)
	}

	sender := new(mockSender)
	sender.On("Send", mock.Anything).Return(nil)

	reportRepo := repository.NewReportRepository(db)
	userRepo := repository.NewUserRepository(db)
	history := NewHistoryService(repository.NewHistoryRepository(db), store, 1<<20)
	notify := NewNotifyService(sender, userRepo, repository.NewCarbonCopyRepository(db), store, NotifyConfig{
		SiteURL:         "https://tracker.example.com/",
		ProjectAddress:  "project@example.com",
		NoReplyAddress:  "noreply@example.com",
		InlineFileBytes: 100 << 10,
	})

	ctx := context.Background()
	for _, u := range []domain.User{
		{Name: "alice", Email: "alice@example.com", Level: domain.LevelReporter, IsPublished: true},
		{Name: "bob", Email: "bob@example.com", Level: domain.LevelDeveloper, IsPublished: true},
		{Name: "carol", Email: "carol@example.com", Level: domain.LevelDeveloper, IsPublished: true},
	} {
		u := u
		require.NoError(t, userRepo.Create(ctx, &u))
	}

	return &testEnv{
		db:       db,
		reports:  NewReportService(reportRepo, history, notify, cacheSvc),
		history:  history,
		notify:   notify,
		search:   NewSearchService(reportRepo),
		sender:   sender,
		store:    store,
		userRepo: userRepo,
	}
}

// newReport saves a valid report directly, bypassing Create's field rules
func (e *testEnv) newReport(t *testing.T, actor domain.Actor, mutate func(r *domain.Report)) *domain.Report {
	t.Helper()
	r := domain.NewReport()
	r.Summary = "menu bar crash"
	r.StrVersion = "1.4"
	if mutate != nil {
		mutate(r)
	}
	require.NoError(t, e.reports.Validate(context.Background(), r))
	require.NoError(t, e.reports.Save(context.Background(), actor, r))
	return r
}
