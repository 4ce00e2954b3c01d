package handler

import (
	"github.com/communityweb/strtracker/internal/common"
	"github.com/communityweb/strtracker/internal/domain"
	"github.com/communityweb/strtracker/internal/middleware"
	"github.com/communityweb/strtracker/internal/service"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	service service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Login godoc
// @Summary      로그인
// @Description  사용자 이름과 비밀번호로 access token을 발급합니다
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "credentials"
// @Success      200  {object}  common.APIResponse{data=domain.LoginResponse}
// @Failure      401  {object}  common.APIResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessResponse(c, resp, nil)
}

// Me godoc
// @Summary      현재 사용자
// @Tags         auth
// @Produce      json
// @Success      200  {object}  common.APIResponse
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	actor := middleware.GetActor(c)
	common.SuccessResponse(c, gin.H{
		"username":     actor.Username,
		"email":        actor.Email,
		"level":        actor.Level,
		"is_developer": actor.IsDeveloper(),
	}, nil)
}
