package handler

import (
	"github.com/gin-gonic/gin"

	"courtmate/backend/internal/dto"
	"courtmate/backend/internal/service"
	"courtmate/backend/pkg/response"
)

// SlotHandler 约球局 HTTP 处理器
type SlotHandler struct {
	slotSvc  service.SlotService
	querySvc service.QueryService
}

// NewSlotHandler 创建 SlotHandler
func NewSlotHandler(slotSvc service.SlotService, querySvc service.QueryService) *SlotHandler {
	return &SlotHandler{slotSvc: slotSvc, querySvc: querySvc}
}

// Create 发起约球
// POST /api/v1/slots
func (h *SlotHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	slot, err := h.slotSvc.Create(c.Request.Context(), &req, userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, "约球发布成功", slot)
}

// Cancel 主办人取消约球，级联取消已通过的申请
// POST /api/v1/slots/:id/cancel
func (h *SlotHandler) Cancel(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slotID, ok := ParamID(c, service.ErrSlotNotFound)
	if !ok {
		return
	}

	var req dto.CancelSlotRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindFailed(c, err)
			return
		}
	}

	result, err := h.slotSvc.Cancel(c.Request.Context(), slotID, &req, userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKWithMessage(c, "约球已取消", result)
}

// Detail 约球详情（按查看者身份裁剪）
// GET /api/v1/slots/:id
func (h *SlotHandler) Detail(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slotID, ok := ParamID(c, service.ErrSlotNotFound)
	if !ok {
		return
	}

	slot, err := h.querySvc.GetSlotDetail(c.Request.Context(), slotID, userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, slot)
}

// Nearby 附近可报名的约球
// GET /api/v1/slots/nearby?lat=&lng=&radius=&simple_level=&gender=&sport=&date_start=&date_end=
func (h *SlotHandler) Nearby(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var q dto.NearbySlotsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	slots, err := h.querySvc.GetNearbySlots(c.Request.Context(), &q, userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKList(c, slots, len(slots))
}

// Mine 我发起的 / 我参加的约球
// GET /api/v1/slots/mine?type=created|joined
func (h *SlotHandler) Mine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var q dto.MySlotsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	slots, err := h.querySvc.GetMySlots(c.Request.Context(), &q, userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKList(c, slots, len(slots))
}
