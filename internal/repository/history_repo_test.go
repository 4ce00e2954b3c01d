package repository

import (
	"context"
	"testing"
	"time"

	"github.com/communityweb/strtracker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRepository_SearchMergesByDate(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(setupTestDB(t))
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateText(ctx, &domain.ReportText{StrID: 1, IsPublished: true, Contents: "first", CreateUser: "alice", CreateDate: base}))
	require.NoError(t, repo.CreateFile(ctx, &domain.ReportFile{StrID: 1, IsPublished: true, Filename: "log.txt", CreateUser: "alice", CreateDate: base.Add(time.Minute)}))
	require.NoError(t, repo.CreateText(ctx, &domain.ReportText{StrID: 1, IsPublished: true, Contents: "third", CreateUser: "bob", CreateDate: base.Add(2 * time.Minute)}))
	require.NoError(t, repo.CreateText(ctx, &domain.ReportText{StrID: 2, IsPublished: true, Contents: "other report", CreateDate: base}))

	entries, err := repo.Search(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].Content)
	assert.Equal(t, domain.EntryFile, entries[1].Kind)
	assert.Equal(t, "log.txt", entries[1].Content)
	assert.Equal(t, "third", entries[2].Content)

	empty, err := repo.Search(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHistoryRepository_SearchSameTimestamp(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(setupTestDB(t))
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// ids come from separate tables: file ids 1 and 2, text id 2
	require.NoError(t, repo.CreateText(ctx, &domain.ReportText{StrID: 9, IsPublished: true, Contents: "elsewhere", CreateDate: at}))
	require.NoError(t, repo.CreateFile(ctx, &domain.ReportFile{StrID: 5, IsPublished: true, Filename: "a.log", CreateDate: at}))
	require.NoError(t, repo.CreateFile(ctx, &domain.ReportFile{StrID: 5, IsPublished: true, Filename: "b.log", CreateDate: at}))
	require.NoError(t, repo.CreateText(ctx, &domain.ReportText{StrID: 5, IsPublished: true, Contents: "see logs", CreateDate: at}))

	entries, err := repo.Search(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"see logs", "a.log", "b.log"},
		[]string{entries[0].Content, entries[1].Content, entries[2].Content})
}

func TestHistoryRepository_FileLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(setupTestDB(t))
	f := &domain.ReportFile{StrID: 7, IsPublished: true, Filename: "crash.log", CreateDate: time.Now()}
	require.NoError(t, repo.CreateFile(ctx, f))

	ok, err := repo.FileExists(ctx, 7, "crash.log")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.FileExists(ctx, 8, "crash.log")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindFileByName(ctx, 7, "crash.log")
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)

	_, err = repo.FindFile(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestHistoryRepository_SetPublished(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(setupTestDB(t))
	txt := &domain.ReportText{StrID: 1, IsPublished: true, Contents: "spam", CreateDate: time.Now()}
	require.NoError(t, repo.CreateText(ctx, txt))

	require.NoError(t, repo.SetTextPublished(ctx, txt.ID, false))
	got, err := repo.FindText(ctx, txt.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPublished)

	// unchanged value is still a success
	require.NoError(t, repo.SetTextPublished(ctx, txt.ID, false))

	assert.ErrorIs(t, repo.SetTextPublished(ctx, 404, true), domain.ErrEntryNotFound)
	assert.ErrorIs(t, repo.SetFilePublished(ctx, 404, true), domain.ErrEntryNotFound)
}

func TestCarbonCopyRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCarbonCopyRepository(setupTestDB(t))

	require.NoError(t, repo.Add(ctx, 1, "Zed@Example.com", "alice"))
	require.NoError(t, repo.Add(ctx, 1, "zed@example.com", "alice"))
	require.NoError(t, repo.Add(ctx, 1, "amy@example.com", "bob"))
	require.NoError(t, repo.Add(ctx, 2, "zed@example.com", "bob"))

	emails, err := repo.ListEmails(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"amy@example.com", "zed@example.com"}, emails)

	require.NoError(t, repo.Remove(ctx, 1, "ZED@example.com"))
	emails, err = repo.ListEmails(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"amy@example.com"}, emails)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t))

	require.NoError(t, repo.Create(ctx, &domain.User{Name: "bob", Email: "bob@example.com", Level: domain.LevelDeveloper}))
	require.NoError(t, repo.Create(ctx, &domain.User{Name: "ghost", Level: domain.LevelReporter}))

	u, err := repo.FindByName(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.LevelDeveloper, u.Level)
	assert.False(t, u.CreateDate.IsZero())

	_, err = repo.FindByName(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)

	emails, err := repo.EmailsByNames(ctx, []string{"bob", "ghost", "nobody"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"bob": "bob@example.com"}, emails)
}
