package handler

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"courtmate/backend/internal/service"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportRoster 导出成员名单
// GET /api/v1/slots/:id/roster.xlsx
func (h *ExportHandler) ExportRoster(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slotID, ok := ParamID(c, service.ErrSlotNotFound)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportRoster(c.Request.Context(), slotID, userID)
	if err != nil {
		handleError(c, err)
		return
	}
	attachment(c, filename, contentTypeXLSX, buf)
}

// ExportCalendar 导出日历事件
// GET /api/v1/slots/:id/calendar.ics
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slotID, ok := ParamID(c, service.ErrSlotNotFound)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), slotID, userID)
	if err != nil {
		handleError(c, err)
		return
	}
	attachment(c, filename, contentTypeICS, buf)
}

// attachment 设置下载响应头并写出文件
func attachment(c *gin.Context, filename, contentType string, buf *bytes.Buffer) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
