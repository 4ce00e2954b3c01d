package domain

import (
	"io"
	"time"
)

// ReportFile is an attachment posted to a report (strfile table)
type ReportFile struct {
	ID          int       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	StrID       int       `gorm:"column:str_id;index" json:"str_id"`
	IsPublished bool      `gorm:"column:is_published" json:"is_published"`
	Filename    string    `gorm:"column:filename;size:255" json:"filename"`
	CreateDate  time.Time `gorm:"column:create_date" json:"create_date"`
	CreateUser  string    `gorm:"column:create_user;size:255" json:"create_user"`
}

func (ReportFile) TableName() string {
	return "strfile"
}

// ReportText is a free-text post on a report (strtext table)
type ReportText struct {
	ID          int       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	StrID       int       `gorm:"column:str_id;index" json:"str_id"`
	IsPublished bool      `gorm:"column:is_published" json:"is_published"`
	Contents    string    `gorm:"column:contents;type:text" json:"contents"`
	CreateDate  time.Time `gorm:"column:create_date" json:"create_date"`
	CreateUser  string    `gorm:"column:create_user;size:255" json:"create_user"`
}

func (ReportText) TableName() string {
	return "strtext"
}

// EntryKind distinguishes the two history entry tables
type EntryKind string

const (
	EntryFile EntryKind = "file"
	EntryText EntryKind = "text"
)

// HistoryEntry is one item in a report's merged, time-ordered history
type HistoryEntry struct {
	Kind        EntryKind `json:"kind"`
	ID          int       `json:"id"`
	StrID       int       `json:"str_id"`
	IsPublished bool      `json:"is_published"`
	Content     string    `json:"content"` // filename for files, text for posts
	CreateUser  string    `json:"create_user"`
	CreateDate  time.Time `json:"create_date"`
}

// Entry converts the file row into a history entry
func (f *ReportFile) Entry() HistoryEntry {
	return HistoryEntry{
		Kind:        EntryFile,
		ID:          f.ID,
		StrID:       f.StrID,
		IsPublished: f.IsPublished,
		Content:     f.Filename,
		CreateUser:  f.CreateUser,
		CreateDate:  f.CreateDate,
	}
}

// Entry converts the text row into a history entry
func (t *ReportText) Entry() HistoryEntry {
	return HistoryEntry{
		Kind:        EntryText,
		ID:          t.ID,
		StrID:       t.StrID,
		IsPublished: t.IsPublished,
		Content:     t.Contents,
		CreateUser:  t.CreateUser,
		CreateDate:  t.CreateDate,
	}
}

// Upload is an incoming attachment
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// FileDownload carries an attachment being read back
type FileDownload struct {
	Filename    string
	ContentType string
	Body        io.ReadCloser
}
