package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/communityweb/strtracker/internal/common"
	"github.com/communityweb/strtracker/internal/domain"
	"github.com/communityweb/strtracker/internal/middleware"
	"github.com/communityweb/strtracker/internal/service"
	"github.com/gin-gonic/gin"
)

// ReportHandler handles STR requests
type ReportHandler struct {
	reports *service.ReportService
	search  *service.SearchService
	history *service.HistoryService
	notify  *service.NotifyService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(
	reports *service.ReportService,
	search *service.SearchService,
	history *service.HistoryService,
	notify *service.NotifyService,
) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		search:  search,
		history: history,
		notify:  notify,
	}
}

// ListReports godoc
// @Summary      STR 목록 조회
// @Description  검색어와 필터로 STR 목록을 페이지 단위로 조회합니다
// @Tags         strs
// @Produce      json
// @Param        q         query  string  false  "search words (title:, number:, version:, ... prefixes; and/or/not)"
// @Param        order     query  string  false  "comma separated [+|-]field list"
// @Param        priority  query  int     false  "exact priority (1-5)"
// @Param        status    query  int     false  "exact status (1-5), -1 closed, -2 open"
// @Param        scope     query  int     false  "exact scope (1-3)"
// @Param        whose     query  bool    false  "only reports of the caller"
// @Param        page      query  int     false  "page number"  default(1)
// @Param        limit     query  int     false  "page size"  default(20)
// @Success      200  {object}  common.APIResponse{data=[]domain.ReportResponse}
// @Failure      400  {object}  common.APIResponse
// @Router       /strs [get]
func (h *ReportHandler) ListReports(c *gin.Context) {
	var q domain.ReportListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	page, err := h.search.List(c.Request.Context(), middleware.GetActor(c), &q)
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]*domain.ReportResponse, 0, len(page.Reports))
	for _, r := range page.Reports {
		data = append(data, r.ToResponse())
	}
	common.SuccessResponse(c, data, &common.Meta{
		Page:  page.Page,
		Limit: page.Limit,
		Total: int64(page.Total),
	})
}

// GetReport godoc
// @Summary      STR 상세 조회
// @Description  STR과 공개된 이력, (개발자에게는) 참조 메일 목록을 반환합니다
// @Tags         strs
// @Produce      json
// @Param        id   path      int  true  "STR number"
// @Success      200  {object}  common.APIResponse{data=domain.ReportDetailResponse}
// @Failure      404  {object}  common.APIResponse
// @Router       /strs/{id} [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
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
	history, err := h.history.Search(ctx, actor, report.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	cc, err := h.notify.CarbonCopies(ctx, actor, report.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if history == nil {
		history = []domain.HistoryEntry{}
	}

	common.SuccessResponse(c, &domain.ReportDetailResponse{
		ReportResponse: report.ToResponse(),
		History:        history,
		CarbonCopies:   cc,
	}, nil)
}

// CreateReport godoc
// @Summary      STR 등록
// @Description  새 STR을 등록합니다. multipart 요청이면 file 필드로 첨부파일을 함께 올릴 수 있습니다
// @Tags         strs
// @Accept       json,mpfd
// @Produce      json
// @Param        request  body      domain.CreateReportRequest  true  "new STR"
// @Success      201  {object}  common.APIResponse{data=domain.ReportResponse}
// @Failure      400  {object}  common.APIResponse
// @Failure      401  {object}  common.APIResponse
// @Security     BearerAuth
// @Router       /strs [post]
func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req domain.CreateReportRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	upload, closeUpload, err := formUpload(c)
	if err != nil {
		bindError(c, err)
		return
	}
	defer closeUpload()

	report, err := h.reports.Create(c.Request.Context(), middleware.GetActor(c), &req, upload)
	if err != nil {
		respondError(c, err)
		return
	}
	common.CreatedResponse(c, report.ToResponse())
}

// UpdateReport godoc
// @Summary      STR 수정
// @Description  개발자는 필드를 수정할 수 있고, 열린 STR에는 누구나 글과 첨부파일을 추가할 수 있습니다
// @Tags         strs
// @Accept       json,mpfd
// @Produce      json
// @Param        id       path      int                         true  "STR number"
// @Param        request  body      domain.UpdateReportRequest  true  "partial edit"
// @Success      200  {object}  common.APIResponse{data=domain.ReportResponse}
// @Failure      400  {object}  common.APIResponse
// @Failure      403  {object}  common.APIResponse
// @Failure      404  {object}  common.APIResponse
// @Security     BearerAuth
// @Router       /strs/{id} [put]
func (h *ReportHandler) UpdateReport(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req domain.UpdateReportRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	upload, closeUpload, err := formUpload(c)
	if err != nil {
		bindError(c, err)
		return
	}
	defer closeUpload()

	report, err := h.reports.Update(c.Request.Context(), middleware.GetActor(c), id, &req, upload)
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessResponse(c, report.ToResponse(), nil)
}

// BatchUpdate godoc
// @Summary      STR 일괄 수정
// @Description  같은 수정 내용을 여러 STR에 하나의 트랜잭션으로 적용합니다
// @Tags         strs
// @Accept       json
// @Produce      json
// @Param        request  body      domain.BatchUpdateRequest  true  "ids and partial edit"
// @Success      200  {object}  common.APIResponse{data=[]domain.ReportResponse}
// @Failure      400  {object}  common.APIResponse
// @Failure      403  {object}  common.APIResponse
// @Security     BearerAuth
// @Router       /strs/batch [post]
func (h *ReportHandler) BatchUpdate(c *gin.Context) {
	var req domain.BatchUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	reports, err := h.reports.BatchUpdate(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]*domain.ReportResponse, 0, len(reports))
	for _, r := range reports {
		data = append(data, r.ToResponse())
	}
	common.SuccessResponse(c, data, &common.Meta{Total: int64(len(data))})
}

// ListVersions godoc
// @Summary      사용 중인 버전 목록
// @Tags         strs
// @Produce      json
// @Success      200  {object}  common.APIResponse{data=[]string}
// @Router       /strs/versions [get]
func (h *ReportHandler) ListVersions(c *gin.Context) {
	values, err := h.reports.ListVersions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessResponse(c, values, nil)
}

// ListSubsystems godoc
// @Summary      사용 중인 서브시스템 목록
// @Tags         strs
// @Produce      json
// @Success      200  {object}  common.APIResponse{data=[]string}
// @Router       /strs/subsystems [get]
func (h *ReportHandler) ListSubsystems(c *gin.Context) {
	values, err := h.reports.ListSubsystems(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessResponse(c, values, nil)
}

// formUpload returns the multipart "file" field as an Upload, or nil when the
// request carries none. The returned func closes the opened part.
func formUpload(c *gin.Context) (*domain.Upload, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return nil, noop, nil
	}

	header, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*domain.Upload, func(), error) {
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &domain.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}
