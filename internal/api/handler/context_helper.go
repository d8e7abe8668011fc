package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"courtmate/backend/internal/api/middleware"
	"courtmate/backend/pkg/jwt"
	"courtmate/backend/pkg/response"
)

// 认证中间件注入的上下文键
const (
	ContextUserID = middleware.ContextUserID
	ContextClaims = middleware.ContextClaims
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		response.Unauthorized(c, codeUnauthenticated, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, codeUnauthenticated, "未认证")
		return "", false
	}
	return s, true
}

// MustGetClaims 提取当前 Access Token 的声明（登出时用于拉黑 jti）
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(ContextClaims)
	if !exists {
		response.Unauthorized(c, codeUnauthenticated, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, codeUnauthenticated, "未认证")
		return nil, false
	}
	return claims, true
}

// ParamID 读取路径参数 id 并规范为 UUID 字符串。
// 格式非法的 id 不可能命中任何记录，直接按 notFound 写入响应，调用方应在 ok=false 时直接 return。
func ParamID(c *gin.Context, notFound error) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handleError(c, notFound)
		return "", false
	}
	return id.String(), true
}
