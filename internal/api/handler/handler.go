package handler

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"courtmate/backend/internal/service"
	pkgerrors "courtmate/backend/pkg/errors"
	"courtmate/backend/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth        *AuthHandler
	User        *UserHandler
	Venue       *VenueHandler
	Slot        *SlotHandler
	Application *ApplicationHandler
	Export      *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:        NewAuthHandler(svc.Auth),
		User:        NewUserHandler(svc.User),
		Venue:       NewVenueHandler(svc.Venue),
		Slot:        NewSlotHandler(svc.Slot, svc.Query),
		Application: NewApplicationHandler(svc.Application),
		Export:      NewExportHandler(svc.Export),
	}
}

// 业务错误码
const (
	codeValidation      = 10001
	codeUnauthenticated = 10002
	codeNotFound        = 20001
	codePermission      = 30001
	codeInvalidState    = 40001
	codeCapacity        = 40002
	codeDuplicate       = 40003
)

// kindStatus 错误分类 → HTTP 状态码与业务码
var kindStatus = map[pkgerrors.Kind]struct {
	status int
	code   int
}{
	pkgerrors.KindValidation:   {http.StatusBadRequest, codeValidation},
	pkgerrors.KindNotFound:     {http.StatusNotFound, codeNotFound},
	pkgerrors.KindPermission:   {http.StatusForbidden, codePermission},
	pkgerrors.KindInvalidState: {http.StatusConflict, codeInvalidState},
	pkgerrors.KindCapacity:     {http.StatusConflict, codeCapacity},
	pkgerrors.KindDuplicate:    {http.StatusConflict, codeDuplicate},
}

// handleError 将 Service 层错误映射为统一响应
// 业务错误原样返回提示语；依赖故障返回通用的暂时不可用提示
func handleError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrInvalidRefresh) {
		response.Unauthorized(c, codeUnauthenticated, err.Error())
		return
	}

	kind := pkgerrors.KindOf(err)
	if m, ok := kindStatus[kind]; ok {
		response.Error(c, m.status, m.code, err.Error())
		return
	}
	if kind == pkgerrors.KindTransient || isTransient(err) {
		response.ServiceUnavailable(c)
		return
	}
	response.InternalError(c)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// bindFailed 参数校验失败
func bindFailed(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, codeValidation, "参数校验失败", err.Error())
}
