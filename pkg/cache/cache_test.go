package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedReport struct {
	ID      int    `json:"id"`
	Summary string `json:"summary"`
}

func newTestCache(t *testing.T) (Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewService(client), mr
}

func TestReportCache(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	var got cachedReport
	assert.ErrorIs(t, c.GetReport(ctx, 1, &got), ErrMiss)

	require.NoError(t, c.SetReport(ctx, 1, cachedReport{ID: 1, Summary: "crash"}))
	assert.True(t, mr.Exists("str:1"))

	require.NoError(t, c.GetReport(ctx, 1, &got))
	assert.Equal(t, "crash", got.Summary)

	require.NoError(t, c.InvalidateReport(ctx, 1, 2))
	assert.False(t, mr.Exists("str:1"))
}

func TestListCache(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.SetList(ctx, "versions", []string{"1.3", "1.4"}))
	require.NoError(t, c.SetList(ctx, "subsystems", []string{"core"}))

	values, err := c.GetList(ctx, "versions")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.3", "1.4"}, values)

	require.NoError(t, c.InvalidateLists(ctx))
	assert.False(t, mr.Exists("strlist:versions"))
	assert.False(t, mr.Exists("strlist:subsystems"))
}

func TestNilClient(t *testing.T) {
	ctx := context.Background()
	c := NewService(nil)

	assert.False(t, c.IsAvailable())
	assert.NoError(t, c.SetReport(ctx, 1, cachedReport{ID: 1}))
	assert.NoError(t, c.InvalidateReport(ctx, 1))
	assert.NoError(t, c.InvalidateLists(ctx))

	var got cachedReport
	assert.ErrorIs(t, c.GetReport(ctx, 1, &got), ErrUnavailable)
	_, err := c.GetList(ctx, "versions")
	assert.ErrorIs(t, err, ErrUnavailable)
}
