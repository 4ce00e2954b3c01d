package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Tracker errors
var (
	ErrReportNotFound  = errors.New("STR not found")
	ErrEntryNotFound   = errors.New("history entry not found")
	ErrInvalidFilename = errors.New("invalid attachment filename")
	ErrTooManyVersions = errors.New("too many attachments with the same name")
	ErrFileTooLarge    = errors.New("attachment exceeds upload limit")
	ErrEmptyContent    = errors.New("content is empty")
)

// FieldErrors maps a field name to the reason it failed validation
type FieldErrors map[string]string

// Add records a failure for field, keeping the first reason given
func (fe FieldErrors) Add(field, reason string) {
	if _, ok := fe[field]; !ok {
		fe[field] = reason
	}
}

// Valid reports whether no field failed
func (fe FieldErrors) Valid() bool { return len(fe) == 0 }

// Fields returns the failing field names in sorted order
func (fe FieldErrors) Fields() []string {
	names := make([]string, 0, len(fe))
	for k := range fe {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ValidationError wraps FieldErrors so it can travel as an error
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields.Fields() {
		parts = append(parts, f+": "+e.Fields[f])
	}
	return "invalid STR: " + strings.Join(parts, "; ")
}

// AsError returns nil when fe is valid, otherwise a *ValidationError
func (fe FieldErrors) AsError() error {
	if fe.Valid() {
		return nil
	}
	return &ValidationError{Fields: fe}
}

// AttachmentError reports a failed text/file post that followed a committed
// report save. The report itself stays committed.
type AttachmentError struct {
	ReportID int
	Err      error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("STR #%d saved, attachment failed: %v", e.ReportID, e.Err)
}

func (e *AttachmentError) Unwrap() error { return e.Err }
