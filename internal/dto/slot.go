package dto

import "courtmate/backend/internal/level"

// ── 约球局模块 DTO ──

// NTRPRangeRequest NTRP 区间
type NTRPRangeRequest struct {
	Min float64 `json:"min" binding:"required,min=1,max=7"`
	Max float64 `json:"max" binding:"required,min=1,max=7,gtefield=Min"`
}

// RequirementRequest 参与者要求；缺省时为 [中级]、不限性别、需要 2 人
type RequirementRequest struct {
	SimpleLevels []string          `json:"simple_level" binding:"omitempty,max=5,dive,simple_level"`
	NTRPRange    *NTRPRangeRequest `json:"ntrp_range"`
	Gender       int               `json:"gender"       binding:"omitempty,oneof=0 1 2"`
	NeedCount    int               `json:"need_count"   binding:"omitempty,min=1,max=20"`
}

// CostRequest 费用；缺省为免费
type CostRequest struct {
	Type     string `json:"type"      binding:"omitempty,oneof=free aa partial"`
	Total    int    `json:"total"     binding:"omitempty,min=0"`
	HostPays int    `json:"host_pays" binding:"omitempty,min=0"`
}

// CreateSlotRequest 发布约球局请求
type CreateSlotRequest struct {
	Sport       string              `json:"sport"       binding:"omitempty,sport"`
	VenueID     string              `json:"venue_id"    binding:"required,uuid"`
	Datetime    string              `json:"datetime"    binding:"required"` // RFC3339
	Duration    int                 `json:"duration"    binding:"omitempty,min=30,max=600"`
	Requirement *RequirementRequest `json:"requirement"`
	Cost        *CostRequest        `json:"cost"`
	Description string              `json:"description" binding:"omitempty,max=500"`
}

// CancelSlotRequest 取消约球局请求
type CancelSlotRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=200"`
}

// NearbySlotsQuery 附近约球局查询参数
type NearbySlotsQuery struct {
	Latitude     *float64 `form:"lat"          binding:"required,min=-90,max=90"`
	Longitude    *float64 `form:"lng"          binding:"required,min=-180,max=180"`
	Radius       float64  `form:"radius"       binding:"omitempty,gt=0"` // 米
	SimpleLevels []string `form:"simple_level" binding:"omitempty,dive,simple_level"`
	Gender       *int     `form:"gender"       binding:"omitempty,oneof=0 1 2"`
	Sport        string   `form:"sport"        binding:"omitempty,sport"`
	DateStart    string   `form:"date_start"   binding:"omitempty,datetime=2006-01-02,required_with=DateEnd"`
	DateEnd      string   `form:"date_end"     binding:"omitempty,datetime=2006-01-02,required_with=DateStart"`
}

// 我的约球局类型
const (
	MySlotsCreated = "created"
	MySlotsJoined  = "joined"
)

// MySlotsQuery 我的约球局查询参数
type MySlotsQuery struct {
	Type string `form:"type" binding:"required,oneof=created joined"`
}

// SlotVenue 约球局中的球场快照
type SlotVenue struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RequirementResponse 参与者要求
type RequirementResponse struct {
	SimpleLevels []string     `json:"simple_level"`
	NTRPRange    *level.Range `json:"ntrp_range,omitempty"`
	Gender       int          `json:"gender"`
	NeedCount    int          `json:"need_count"`
}

// CostResponse 费用
type CostResponse struct {
	Type      string `json:"type"`
	Total     int    `json:"total"`
	HostPays  int    `json:"host_pays"`
	PerPerson int    `json:"per_person"`
}

// SlotResponse 约球局视图；按查询场景附加不同的聚合字段
type SlotResponse struct {
	ID              string              `json:"id"`
	Sport           string              `json:"sport"`
	Datetime        string              `json:"datetime"`
	EndAt           string              `json:"end_at"`
	Duration        int                 `json:"duration"`
	Venue           SlotVenue           `json:"venue"`
	Requirement     RequirementResponse `json:"requirement"`
	Cost            CostResponse        `json:"cost"`
	CurrentCount    int                 `json:"current_count"`
	Participants    []string            `json:"participants"`
	Description     string              `json:"description"`
	Status          string              `json:"status"`
	EffectiveStatus string              `json:"effective_status"`
	StatusText      string              `json:"status_text"`
	HostID          string              `json:"host_id"`
	CancelReason    string              `json:"cancel_reason,omitempty"`
	CancelledAt     string              `json:"cancelled_at,omitempty"`
	CreatedAt       string              `json:"created_at"`

	Host                     *UserBrief            `json:"host,omitempty"`
	ParticipantProfiles      []UserBrief           `json:"participant_profiles,omitempty"`
	Applications             []ApplicationResponse `json:"applications,omitempty"` // 仅主办人可见
	HasApplied               *bool                 `json:"has_applied,omitempty"`
	MyApplication            *ApplicationResponse  `json:"my_application,omitempty"`
	PendingApplicationsCount *int64                `json:"pending_applications_count,omitempty"`
	Distance                 *float64              `json:"distance,omitempty"` // 米
	LevelMatch               *bool                 `json:"level_match,omitempty"`
	MatchScore               *int                  `json:"match_score,omitempty"`
}

// CancelSlotResponse 取消约球局结果
type CancelSlotResponse struct {
	SlotID               string   `json:"slot_id"`
	Status               string   `json:"status"`
	AffectedApplications int      `json:"affected_applications"`
	FailedApplications   []string `json:"failed_applications,omitempty"`
	// 未能列出已通过申请，级联未执行
	CascadeIncomplete bool `json:"cascade_incomplete,omitempty"`
}
