package domain

import "strings"

// CreateReportRequest is the input for a new STR (JSON or multipart form)
type CreateReportRequest struct {
	Summary     string `json:"summary" form:"summary" binding:"required,max=255"`
	Priority    int8   `json:"priority" form:"priority" binding:"required,min=1,max=5"`
	Scope       int8   `json:"scope" form:"scope" binding:"required,min=1,max=3"`
	StrVersion  string `json:"str_version" form:"str_version" binding:"required,strversion"`
	Contents    string `json:"contents" form:"contents"`
	Subsystem   string `json:"subsystem" form:"subsystem" binding:"max=128"`
	ManagerUser string `json:"manager_user" form:"manager_user" binding:"max=255"`
	FixVersion  string `json:"fix_version" form:"fix_version" binding:"omitempty,strversion"`
	Status      int8   `json:"status" form:"status" binding:"omitempty,min=1,max=5"`
	IsPublished *bool  `json:"is_published" form:"is_published"`
}

// UpdateReportRequest carries a partial edit; nil fields are left unchanged
type UpdateReportRequest struct {
	MasterID    *int    `json:"master_id" form:"master_id" binding:"omitempty,min=0"`
	IsPublished *bool   `json:"is_published" form:"is_published"`
	Status      *int8   `json:"status" form:"status" binding:"omitempty,min=1,max=5"`
	Priority    *int8   `json:"priority" form:"priority" binding:"omitempty,min=1,max=5"`
	Scope       *int8   `json:"scope" form:"scope" binding:"omitempty,min=1,max=3"`
	Summary     *string `json:"summary" form:"summary" binding:"omitempty,max=255"`
	Subsystem   *string `json:"subsystem" form:"subsystem" binding:"omitempty,max=128"`
	StrVersion  *string `json:"str_version" form:"str_version" binding:"omitempty,strversion"`
	FixVersion  *string `json:"fix_version" form:"fix_version" binding:"omitempty,strversion"`
	FixRevision *string `json:"fix_revision" form:"fix_revision" binding:"omitempty,max=40"`
	ManagerUser *string `json:"manager_user" form:"manager_user" binding:"omitempty,max=255"`
	Contents    string  `json:"contents" form:"contents"`
	// Notify defaults to true; set false to skip the notification email
	Notify *bool `json:"notify" form:"notify"`
}

// ApplyTo copies every non-nil field onto r
func (req *UpdateReportRequest) ApplyTo(r *Report) {
	if req.MasterID != nil {
		r.MasterID = *req.MasterID
	}
	if req.IsPublished != nil {
		r.IsPublished = *req.IsPublished
	}
	if req.Status != nil {
		r.Status = Status(*req.Status)
	}
	if req.Priority != nil {
		r.Priority = Priority(*req.Priority)
	}
	if req.Scope != nil {
		r.Scope = Scope(*req.Scope)
	}
	if req.Summary != nil {
		r.Summary = strings.TrimSpace(*req.Summary)
	}
	if req.Subsystem != nil {
		r.Subsystem = strings.TrimSpace(*req.Subsystem)
	}
	if req.StrVersion != nil {
		r.StrVersion = *req.StrVersion
	}
	if req.FixVersion != nil {
		r.FixVersion = *req.FixVersion
	}
	if req.FixRevision != nil {
		r.FixRevision = *req.FixRevision
	}
	if req.ManagerUser != nil {
		r.ManagerUser = strings.TrimSpace(*req.ManagerUser)
	}
}

// HasFieldEdits reports whether any report field is being changed
func (req *UpdateReportRequest) HasFieldEdits() bool {
	return req.MasterID != nil || req.IsPublished != nil || req.Status != nil ||
		req.Priority != nil || req.Scope != nil || req.Summary != nil ||
		req.Subsystem != nil || req.StrVersion != nil || req.FixVersion != nil ||
		req.FixRevision != nil || req.ManagerUser != nil
}

// ShouldNotify reports whether the edit should send mail
func (req *UpdateReportRequest) ShouldNotify() bool {
	return req.Notify == nil || *req.Notify
}

// BatchUpdateRequest applies the same partial edit to many reports
type BatchUpdateRequest struct {
	IDs []int `json:"ids" binding:"required,min=1,dive,gt=0"`
	UpdateReportRequest
}

// AddTextRequest is the body of POST /strs/:id/texts
type AddTextRequest struct {
	Contents string `json:"contents" form:"contents" binding:"required"`
}

// VisibilityRequest toggles moderation visibility of a history entry
type VisibilityRequest struct {
	IsPublished *bool `json:"is_published" binding:"required"`
}

// SearchOptions is the structured input to report search
type SearchOptions struct {
	Query    string
	Order    []string
	Priority int
	Status   int // >0 exact, -1 closed, -2 open, 0 any
	Scope    int
	Whose    bool
}

// Special status filter values
const (
	StatusFilterClosed = -1
	StatusFilterOpen   = -2
)

// ReportListQuery binds GET /strs query parameters
type ReportListQuery struct {
	Q        string `form:"q"`
	Order    string `form:"order"`
	Priority int    `form:"priority" binding:"omitempty,min=0,max=5"`
	Status   int    `form:"status" binding:"omitempty,min=-2,max=5"`
	Scope    int    `form:"scope" binding:"omitempty,min=0,max=3"`
	Whose    bool   `form:"whose"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

// Options converts the query parameters into SearchOptions
func (q *ReportListQuery) Options() SearchOptions {
	var order []string
	for _, f := range strings.Split(q.Order, ",") {
		if f = strings.TrimSpace(f); f != "" {
			order = append(order, f)
		}
	}
	return SearchOptions{
		Query:    q.Q,
		Order:    order,
		Priority: q.Priority,
		Status:   q.Status,
		Scope:    q.Scope,
		Whose:    q.Whose,
	}
}
