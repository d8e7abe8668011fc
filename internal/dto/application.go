package dto

// ── 申请模块 DTO ──

// ApplyRequest 申请加入约球局
type ApplyRequest struct {
	SlotID  string `json:"slot_id" binding:"required,uuid"`
	Message string `json:"message" binding:"omitempty,max=200"`
}

// 审核动作
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// RespondRequest 主办人审核申请
type RespondRequest struct {
	Action string `json:"action" binding:"required,oneof=approve reject"`
	Reason string `json:"reason" binding:"omitempty,max=200"`
}

// ApplicationResponse 申请信息
type ApplicationResponse struct {
	ID          string     `json:"id"`
	SlotID      string     `json:"slot_id"`
	ApplicantID string     `json:"applicant_id"`
	HostID      string     `json:"host_id"`
	Message     string     `json:"message,omitempty"`
	Status      string     `json:"status"`
	StatusText  string     `json:"status_text"`
	Reason      string     `json:"reason,omitempty"`
	ReviewedAt  string     `json:"reviewed_at,omitempty"`
	CancelledAt string     `json:"cancelled_at,omitempty"`
	CreatedAt   string     `json:"created_at"`
	Applicant   *UserBrief `json:"applicant,omitempty"`
}

// RespondResponse 审核结果
type RespondResponse struct {
	ApplicationID string `json:"application_id"`
	Status        string `json:"status"`
}
