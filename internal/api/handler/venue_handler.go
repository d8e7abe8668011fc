package handler

import (
	"github.com/gin-gonic/gin"

	"courtmate/backend/internal/dto"
	"courtmate/backend/internal/service"
	"courtmate/backend/pkg/response"
)

// VenueHandler 球场模块 HTTP 处理器
type VenueHandler struct {
	venueSvc service.VenueService
}

// NewVenueHandler 创建 VenueHandler
func NewVenueHandler(venueSvc service.VenueService) *VenueHandler {
	return &VenueHandler{venueSvc: venueSvc}
}

// Create 提交新球场（待审核）
// POST /api/v1/venues
func (h *VenueHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	venue, err := h.venueSvc.Create(c.Request.Context(), &req, userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, "球场已提交，等待审核", venue)
}

// Nearby 附近球场
// GET /api/v1/venues/nearby?lat=&lng=&radius=
func (h *VenueHandler) Nearby(c *gin.Context) {
	var q dto.NearbyVenuesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	venues, err := h.venueSvc.Nearby(c.Request.Context(), &q)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKList(c, venues, len(venues))
}

// Detail 球场详情（含近 7 天约球局）
// GET /api/v1/venues/:id
func (h *VenueHandler) Detail(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	venueID, ok := ParamID(c, service.ErrVenueNotFound)
	if !ok {
		return
	}

	venue, err := h.venueSvc.Detail(c.Request.Context(), venueID, userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, venue)
}
