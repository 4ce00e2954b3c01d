package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportKey(t *testing.T) {
	assert.Equal(t, "reports/42/crash.log", ReportKey(42, "crash.log"))
}

func TestValidFilename(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"crash.log", true},
		{"my file.txt", true},
		{"", false},
		{".htaccess", false},
		{"../etc/passwd", false},
		{"/etc/passwd", false},
		{"\\windows", false},
		{"dir/file.txt", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidFilename(tt.name))
		})
	}
}

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	key := ReportKey(1, "log.txt")
	ok, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, key, strings.NewReader("hello"), "text/plain", 5))

	ok, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := store.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	// keys are write-once
	assert.Error(t, store.Put(ctx, key, strings.NewReader("again"), "text/plain", 5))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Delete(ctx, key))
}
