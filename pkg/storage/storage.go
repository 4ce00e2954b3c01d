package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when no object exists under the key
var ErrNotFound = errors.New("storage: object not found")

// FileStore is the attachment area keyed by report id
type FileStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Presigner is implemented by stores that can hand out direct download URLs
type Presigner interface {
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ReportKey returns the object key of an attachment: reports/{id}/{filename}
func ReportKey(reportID int, filename string) string {
	return path.Join("reports", fmt.Sprint(reportID), filename)
}

// ValidFilename rejects names that are empty, hidden, or could escape the report's area
func ValidFilename(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}
