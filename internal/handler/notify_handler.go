package handler

import (
	"github.com/communityweb/strtracker/internal/common"
	"github.com/communityweb/strtracker/internal/domain"
	"github.com/communityweb/strtracker/internal/middleware"
	"github.com/communityweb/strtracker/internal/service"
	"github.com/gin-gonic/gin"
)

// NotifyHandler manages the per-report carbon copy list
type NotifyHandler struct {
	reports *service.ReportService
	notify  *service.NotifyService
}

// NewNotifyHandler creates a new NotifyHandler
func NewNotifyHandler(reports *service.ReportService, notify *service.NotifyService) *NotifyHandler {
	return &NotifyHandler{reports: reports, notify: notify}
}

// Subscribe godoc
// @Summary      STR 알림 구독
// @Description  email을 비우면 로그인한 사용자의 메일로 구독합니다. 다른 주소는 개발자만 등록할 수 있습니다
// @Tags         notify
// @Accept       json
// @Produce      json
// @Param        id       path  int                        true   "STR number"
// @Param        request  body  domain.CarbonCopyRequest  false  "address"
// @Success      200  {object}  common.APIResponse
// @Security     BearerAuth
// @Router       /strs/{id}/notify [post]
func (h *NotifyHandler) Subscribe(c *gin.Context) {
	h.change(c, true)
}

// Unsubscribe godoc
// @Summary      STR 알림 구독 해제
// @Tags         notify
// @Accept       json
// @Produce      json
// @Param        id       path  int                        true   "STR number"
// @Param        request  body  domain.CarbonCopyRequest  false  "address"
// @Success      200  {object}  common.APIResponse
// @Security     BearerAuth
// @Router       /strs/{id}/notify [delete]
func (h *NotifyHandler) Unsubscribe(c *gin.Context) {
	h.change(c, false)
}

func (h *NotifyHandler) change(c *gin.Context, subscribe bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req domain.CarbonCopyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	if req.Email == "" {
		req.Email = c.Query("email")
	}

	ctx := c.Request.Context()
	actor := middleware.GetActor(c)
	if _, err := h.reports.Get(ctx, actor, id); err != nil {
		respondError(c, err)
		return
	}

	var (
		addr string
		err  error
	)
	if subscribe {
		addr, err = h.notify.Subscribe(ctx, actor, id, req.Email)
	} else {
		addr, err = h.notify.Unsubscribe(ctx, actor, id, req.Email)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"str_id": id, "email": addr, "subscribed": subscribe}, nil)
}
