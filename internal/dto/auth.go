package dto

// ── 认证模块 DTO ──

// RegisterRequest 注册请求
type RegisterRequest struct {
	Account  string `json:"account"   binding:"required,min=4,max=50"`
	Password string `json:"password"  binding:"required,min=8,max=32"`
	NickName string `json:"nick_name" binding:"omitempty,max=50"`
	Gender   int    `json:"gender"    binding:"omitempty,oneof=0 1 2"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Account  string `json:"account"  binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // Access Token 有效期（秒）
	User         UserResponse `json:"user"`
}
