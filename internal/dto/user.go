package dto

// ── 用户模块 DTO ──

// UpdateProfileRequest 更新个人资料，字段均可选，未提供的保持不变
type UpdateProfileRequest struct {
	NickName       *string             `json:"nick_name"       binding:"omitempty,min=1,max=50"`
	AvatarURL      *string             `json:"avatar_url"      binding:"omitempty,max=500"`
	Gender         *int                `json:"gender"          binding:"omitempty,oneof=0 1 2"`
	FavoriteVenues *[]string           `json:"favorite_venues" binding:"omitempty,max=50,dive,uuid"`
	Level          *UpdateLevelRequest `json:"level"`
}

// UpdateLevelRequest 更新某项运动的等级档案
type UpdateLevelRequest struct {
	Sport        string   `json:"sport"         binding:"required,sport"`
	Simple       *string  `json:"simple"        binding:"omitempty,simple_level"`
	NTRP         *float64 `json:"ntrp"          binding:"omitempty,min=1,max=7"`
	Verified     *bool    `json:"verified"`
	VerifiedType *string  `json:"verified_type" binding:"omitempty,oneof=video certificate coach"`
}

// LevelResponse 运动等级
type LevelResponse struct {
	Sport        string   `json:"sport"`
	Simple       string   `json:"simple"`
	NTRP         *float64 `json:"ntrp,omitempty"`
	Verified     bool     `json:"verified"`
	VerifiedType *string  `json:"verified_type,omitempty"`
	VerifiedAt   string   `json:"verified_at,omitempty"`
	LastUpdated  string   `json:"last_updated,omitempty"`
}

// UserResponse 当前用户完整资料（GET /users/me）
type UserResponse struct {
	ID             string          `json:"id"`
	Account        string          `json:"account"`
	NickName       string          `json:"nick_name"`
	AvatarURL      string          `json:"avatar_url"`
	Gender         int             `json:"gender"`
	Rating         float64         `json:"rating"`
	TotalGames     int             `json:"total_games"`
	CreditScore    int             `json:"credit_score"`
	FavoriteVenues []string        `json:"favorite_venues"`
	Levels         []LevelResponse `json:"levels"`
	CreatedAt      string          `json:"created_at"`
}

// UserBrief 对外公开的用户简要信息（脱敏）
type UserBrief struct {
	ID          string          `json:"id"`
	NickName    string          `json:"nick_name"`
	AvatarURL   string          `json:"avatar_url"`
	Gender      int             `json:"gender"`
	Rating      float64         `json:"rating"`
	CreditScore int             `json:"credit_score"`
	TotalGames  int             `json:"total_games"`
	Level       *LevelResponse  `json:"level,omitempty"`  // 约球局视图中为该运动的等级
	Levels      []LevelResponse `json:"levels,omitempty"` // 公开资料中为全部等级
}
