package handler

import (
	"github.com/gin-gonic/gin"

	"courtmate/backend/internal/dto"
	"courtmate/backend/internal/service"
	"courtmate/backend/pkg/response"
)

// ApplicationHandler 报名申请 HTTP 处理器
type ApplicationHandler struct {
	appSvc service.ApplicationService
}

// NewApplicationHandler 创建 ApplicationHandler
func NewApplicationHandler(appSvc service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{appSvc: appSvc}
}

// Apply 报名约球
// POST /api/v1/applications
func (h *ApplicationHandler) Apply(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	app, err := h.appSvc.Apply(c.Request.Context(), &req, userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, "申请已提交", app)
}

// Respond 主办人审核申请
// POST /api/v1/applications/:id/respond
func (h *ApplicationHandler) Respond(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	appID, ok := ParamID(c, service.ErrApplicationNotFound)
	if !ok {
		return
	}

	var req dto.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.appSvc.Respond(c.Request.Context(), appID, &req, userID)
	if err != nil {
		handleError(c, err)
		return
	}

	msg := "已通过申请"
	if req.Action == dto.ActionReject {
		msg = "已拒绝申请"
	}
	response.OKWithMessage(c, msg, result)
}
