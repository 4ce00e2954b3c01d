package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the ordinal STR status. Lower values are "more closed".
type Status int8

const (
	StatusResolved   Status = 1
	StatusUnresolved Status = 2
	StatusActive     Status = 3
	StatusPending    Status = 4
	StatusNew        Status = 5
)

var statusText = map[Status]string{
	StatusResolved:   "Resolved",
	StatusUnresolved: "Unresolved",
	StatusActive:     "Active",
	StatusPending:    "Pending",
	StatusNew:        "New",
}

func (s Status) String() string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return fmt.Sprintf("Status(%d)", int8(s))
}

// Valid reports whether s lies in [Resolved, New]
func (s Status) Valid() bool { return s >= StatusResolved && s <= StatusNew }

// IsOpen reports whether the report is still being worked on (status >= Active)
func (s Status) IsOpen() bool { return s >= StatusActive }

// IsClosed reports whether the report is closed (status <= Unresolved)
func (s Status) IsClosed() bool { return s <= StatusUnresolved }

// Priority is the ordinal STR priority. RFE is the lowest tier.
type Priority int8

const (
	PriorityRFE      Priority = 1
	PriorityLow      Priority = 2
	PriorityModerate Priority = 3
	PriorityHigh     Priority = 4
	PriorityCritical Priority = 5
)

var priorityText = map[Priority]string{
	PriorityRFE:      "RFE",
	PriorityLow:      "Low",
	PriorityModerate: "Moderate",
	PriorityHigh:     "High",
	PriorityCritical: "Critical",
}

func (p Priority) String() string {
	if t, ok := priorityText[p]; ok {
		return t
	}
	return fmt.Sprintf("Priority(%d)", int8(p))
}

func (p Priority) Valid() bool { return p >= PriorityRFE && p <= PriorityCritical }

// Scope describes how widely a problem applies.
type Scope int8

const (
	ScopeMachine Scope = 1
	ScopeOS      Scope = 2
	ScopeAll     Scope = 3
)

var scopeText = map[Scope]string{
	ScopeMachine: "Machine",
	ScopeOS:      "OS",
	ScopeAll:     "All",
}

func (s Scope) String() string {
	if t, ok := scopeText[s]; ok {
		return t
	}
	return fmt.Sprintf("Scope(%d)", int8(s))
}

func (s Scope) Valid() bool { return s >= ScopeMachine && s <= ScopeAll }

// ParseStatus accepts either the ordinal ("3") or the text ("active")
func ParseStatus(v string) (Status, error) {
	n, err := parseOrdinal(v, toLookup(statusText))
	return Status(n), err
}

// ParsePriority accepts either the ordinal ("1") or the text ("rfe")
func ParsePriority(v string) (Priority, error) {
	n, err := parseOrdinal(v, toLookup(priorityText))
	return Priority(n), err
}

// ParseScope accepts either the ordinal ("3") or the text ("all")
func ParseScope(v string) (Scope, error) {
	n, err := parseOrdinal(v, toLookup(scopeText))
	return Scope(n), err
}

func toLookup[K ~int8](m map[K]string) map[string]int8 {
	out := make(map[string]int8, len(m))
	for k, v := range m {
		out[strings.ToLower(v)] = int8(k)
	}
	return out
}

func parseOrdinal(v string, byName map[string]int8) (int8, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.ParseInt(v, 10, 8); err == nil {
		return int8(n), nil
	}
	if n, ok := byName[strings.ToLower(v)]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("unknown value %q", v)
}

// FeatureMarker marks a version string as a feature branch (e.g. "1.4-feature")
const FeatureMarker = "-feature"

// IsFeatureVersion reports whether version denotes a feature branch
func IsFeatureVersion(version string) bool {
	return strings.Contains(strings.ToLower(version), FeatureMarker)
}

// Report is one bug / feature request (STR) - maps to the str table
type Report struct {
	ID          int       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	MasterID    int       `gorm:"column:master_id;index" json:"master_id"`
	IsPublished bool      `gorm:"column:is_published" json:"is_published"`
	Status      Status    `gorm:"column:status;index" json:"status"`
	Priority    Priority  `gorm:"column:priority" json:"priority"`
	Scope       Scope     `gorm:"column:scope" json:"scope"`
	Summary     string    `gorm:"column:summary;size:255" json:"summary"`
	Subsystem   string    `gorm:"column:subsystem;size:128" json:"subsystem"`
	StrVersion  string    `gorm:"column:str_version;size:16" json:"str_version"`
	FixVersion  string    `gorm:"column:fix_version;size:16" json:"fix_version"`
	FixRevision string    `gorm:"column:fix_revision;size:40" json:"fix_revision"`
	ManagerUser string    `gorm:"column:manager_user;size:255;index" json:"manager_user"`
	CreateDate  time.Time `gorm:"column:create_date" json:"create_date"`
	CreateUser  string    `gorm:"column:create_user;size:255;index" json:"create_user"`
	ModifyDate  time.Time `gorm:"column:modify_date" json:"modify_date"`
	ModifyUser  string    `gorm:"column:modify_user;size:255" json:"modify_user"`
}

// TableName returns the table name
func (Report) TableName() string {
	return "str"
}

// NewReport returns a report in its initial lifecycle state
func NewReport() *Report {
	return &Report{
		IsPublished: true,
		Status:      StatusNew,
		Priority:    PriorityModerate,
		Scope:       ScopeAll,
	}
}

// Validate checks every field invariant without touching storage.
// masterExists resolves a non-zero master_id; a nil func treats every master as missing.
func (r *Report) Validate(masterExists func(id int) bool) FieldErrors {
	errs := FieldErrors{}

	if r.MasterID != 0 && (masterExists == nil || r.MasterID == r.ID || !masterExists(r.MasterID)) {
		errs.Add("master_id", "must reference another existing STR")
	}
	if !r.Status.Valid() {
		errs.Add("status", "unknown status")
	}
	if !r.Priority.Valid() {
		errs.Add("priority", "unknown priority")
	}
	if !r.Scope.Valid() {
		errs.Add("scope", "unknown scope")
	}
	if strings.TrimSpace(r.Summary) == "" {
		errs.Add("summary", "required")
	}
	if r.Status != StatusNew {
		if strings.TrimSpace(r.Subsystem) == "" {
			errs.Add("subsystem", "required once the STR leaves New")
		}
		if strings.TrimSpace(r.ManagerUser) == "" {
			errs.Add("manager_user", "required once the STR leaves New")
		}
	}
	if r.Status == StatusResolved && strings.TrimSpace(r.FixVersion) == "" {
		errs.Add("fix_version", "required for resolved STRs")
	}
	switch {
	case strings.TrimSpace(r.StrVersion) == "":
		errs.Add("str_version", "required")
	case r.Priority == PriorityRFE && !IsFeatureVersion(r.StrVersion):
		errs.Add("str_version", "feature requests must target a feature branch")
	}

	return errs
}

// VisibleTo reports whether the actor may see this report
func (r *Report) VisibleTo(actor Actor) bool {
	if r.IsPublished || actor.IsDeveloper() {
		return true
	}
	return actor.Username != "" && actor.Username == r.CreateUser
}

// ReportResponse is the API representation of a report
type ReportResponse struct {
	ID           int    `json:"id"`
	MasterID     int    `json:"master_id,omitempty"`
	IsPublished  bool   `json:"is_published"`
	Status       int8   `json:"status"`
	StatusText   string `json:"status_text"`
	Priority     int8   `json:"priority"`
	PriorityText string `json:"priority_text"`
	Scope        int8   `json:"scope"`
	ScopeText    string `json:"scope_text"`
	Summary      string `json:"summary"`
	Subsystem    string `json:"subsystem"`
	StrVersion   string `json:"str_version"`
	FixVersion   string `json:"fix_version,omitempty"`
	FixRevision  string `json:"fix_revision,omitempty"`
	ManagerUser  string `json:"manager_user,omitempty"`
	CreateUser   string `json:"create_user"`
	CreateDate   string `json:"create_date"`
	ModifyUser   string `json:"modify_user"`
	ModifyDate   string `json:"modify_date"`
}

// ToResponse converts a Report to its API representation
func (r *Report) ToResponse() *ReportResponse {
	return &ReportResponse{
		ID:           r.ID,
		MasterID:     r.MasterID,
		IsPublished:  r.IsPublished,
		Status:       int8(r.Status),
		StatusText:   r.Status.String(),
		Priority:     int8(r.Priority),
		PriorityText: r.Priority.String(),
		Scope:        int8(r.Scope),
		ScopeText:    r.Scope.String(),
		Summary:      r.Summary,
		Subsystem:    r.Subsystem,
		StrVersion:   r.StrVersion,
		FixVersion:   r.FixVersion,
		FixRevision:  r.FixRevision,
		ManagerUser:  r.ManagerUser,
		CreateUser:   r.CreateUser,
		CreateDate:   r.CreateDate.Format(time.RFC3339),
		ModifyUser:   r.ModifyUser,
		ModifyDate:   r.ModifyDate.Format(time.RFC3339),
	}
}

// ReportDetailResponse is a report with its visible history and CC list
type ReportDetailResponse struct {
	*ReportResponse
	History      []HistoryEntry `json:"history"`
	CarbonCopies []string       `json:"carbon_copies,omitempty"`
}
