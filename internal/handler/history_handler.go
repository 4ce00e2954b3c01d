package handler

import (
	"context"
	"mime"
	"net/http"

	"github.com/communityweb/strtracker/internal/common"
	"github.com/communityweb/strtracker/internal/domain"
	"github.com/communityweb/strtracker/internal/middleware"
	"github.com/communityweb/strtracker/internal/service"
	"github.com/gin-gonic/gin"
)

// HistoryHandler handles text/file posts, moderation and downloads
type HistoryHandler struct {
	reports *service.ReportService
	history *service.HistoryService
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(reports *service.ReportService, history *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{reports: reports, history: history}
}

// AddText godoc
// @Summary      STR에 글 추가
// @Tags         history
// @Accept       json
// @Produce      json
// @Param        id       path      int                     true  "STR number"
// @Param        request  body      domain.AddTextRequest  true  "text"
// @Success      201  {object}  common.APIResponse{data=domain.ReportResponse}
// @Failure      403  {object}  common.APIResponse
// @Security     BearerAuth
// @Router       /strs/{id}/texts [post]
func (h *HistoryHandler) AddText(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req domain.AddTextRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	report, err := h.reports.Update(c.Request.Context(), middleware.GetActor(c), id,
		&domain.UpdateReportRequest{Contents: req.Contents}, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	common.CreatedResponse(c, report.ToResponse())
}

// AddFile godoc
// @Summary      STR에 첨부파일 추가
// @Tags         history
// @Accept       mpfd
// @Produce      json
// @Param        id    path      int   true  "STR number"
// @Param        file  formData  file  true  "attachment"
// @Success      201  {object}  common.APIResponse{data=domain.ReportResponse}
// @Failure      403  {object}  common.APIResponse
// @Failure      413  {object}  common.APIResponse
// @Security     BearerAuth
// @Router       /strs/{id}/files [post]
func (h *HistoryHandler) AddFile(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		bindError(c, err)
		return
	}
	upload, closeUpload, err := openUpload(header)
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeUpload()

	report, err := h.reports.Update(c.Request.Context(), middleware.GetActor(c), id,
		&domain.UpdateReportRequest{Contents: c.PostForm("contents")}, upload)
	if err != nil {
		respondError(c, err)
		return
	}
	common.CreatedResponse(c, report.ToResponse())
}

// SetTextVisibility godoc
// @Summary      글 공개 여부 변경
// @Tags         history
// @Accept       json
// @Produce      json
// @Param        id       path  int                        true  "STR number"
// @Param        text_id  path  int                        true  "text id"
// @Param        request  body  domain.VisibilityRequest  true  "visibility"
// @Success      200  {object}  common.APIResponse
// @Security     BearerAuth
// @Router       /strs/{id}/texts/{text_id} [patch]
func (h *HistoryHandler) SetTextVisibility(c *gin.Context) {
	h.setVisibility(c, "text_id", h.history.SetTextVisibility)
}

// SetFileVisibility godoc
// @Summary      첨부파일 공개 여부 변경
// @Tags         history
// @Accept       json
// @Produce      json
// @Param        id       path  int                        true  "STR number"
// @Param        file_id  path  int                        true  "file id"
// @Param        request  body  domain.VisibilityRequest  true  "visibility"
// @Success      200  {object}  common.APIResponse
// @Security     BearerAuth
// @Router       /strs/{id}/files/{file_id} [patch]
func (h *HistoryHandler) SetFileVisibility(c *gin.Context) {
	h.setVisibility(c, "file_id", h.history.SetFileVisibility)
}

type visibilityFunc func(ctx context.Context, actor domain.Actor, reportID, entryID int, published bool) error

func (h *HistoryHandler) setVisibility(c *gin.Context, key string, set visibilityFunc) {
	reportID, ok := paramID(c, "id")
	if !ok {
		return
	}
	entryID, ok := paramID(c, key)
	if !ok {
		return
	}
	var req domain.VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := set(c.Request.Context(), middleware.GetActor(c), reportID, entryID, *req.IsPublished); err != nil {
		respondError(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"id": entryID, "is_published": *req.IsPublished}, nil)
}

// DownloadFile godoc
// @Summary      첨부파일 다운로드
// @Description  S3 저장소는 presigned URL로 리다이렉트하고, 로컬 저장소는 파일을 직접 전송합니다
// @Tags         history
// @Param        id        path  int     true  "STR number"
// @Param        filename  path  string  true  "attachment name"
// @Success      200
// @Success      302
// @Failure      404  {object}  common.APIResponse
// @Router       /strs/{id}/files/{filename} [get]
func (h *HistoryHandler) DownloadFile(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	actor := middleware.GetActor(c)

	report, err := h.reports.Get(ctx, actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	file, err := h.history.FindFile(ctx, actor, report, c.Param("filename"))
	if err != nil {
		respondError(c, err)
		return
	}

	url, err := h.history.DirectURL(ctx, file)
	if err != nil {
		respondError(c, err)
		return
	}
	if url != "" {
		c.Redirect(http.StatusFound, url)
		return
	}

	download, err := h.history.OpenFile(ctx, file)
	if err != nil {
		respondError(c, err)
		return
	}
	defer download.Body.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": download.Filename})
	c.DataFromReader(http.StatusOK, -1, download.ContentType, download.Body, map[string]string{
		"Content-Disposition": disposition,
	})
}
