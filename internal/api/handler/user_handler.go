package handler

import (
	"github.com/gin-gonic/gin"

	"courtmate/backend/internal/dto"
	"courtmate/backend/internal/level"
	"courtmate/backend/internal/service"
	"courtmate/backend/pkg/response"
)

// UserHandler 用户模块 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// GetMe 获取当前用户信息
// GET /api/v1/users/me
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.userSvc.GetMe(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, user)
}

// UpdateMe 更新个人资料与等级
// PUT /api/v1/users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	user, err := h.userSvc.UpdateMe(c.Request.Context(), &req, userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKWithMessage(c, "资料已更新", user)
}

// GetUser 查看他人公开资料
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, ok := ParamID(c, service.ErrUserNotFound)
	if !ok {
		return
	}

	user, err := h.userSvc.GetPublic(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, user)
}

// levelBand 等级说明
type levelBand struct {
	Level       string      `json:"level"`
	NTRPRange   level.Range `json:"ntrp_range"`
	Description string      `json:"description"`
	Example     string      `json:"example"`
}

// ListLevels 简化等级与 NTRP 对照表
// GET /api/v1/levels
func (h *UserHandler) ListLevels(c *gin.Context) {
	bands := level.Bands()
	list := make([]levelBand, 0, len(bands))
	for _, b := range bands {
		list = append(list, levelBand{Level: b.Level, NTRPRange: b.Range, Description: b.Description, Example: b.Example})
	}
	response.OKList(c, list, len(list))
}
