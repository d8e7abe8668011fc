package model

import "time"

// Application 申请表 — 对应 applications
// (slot_id, applicant_id) 在 pending/approved 状态下由部分唯一索引保证至多一条
type Application struct {
	ApplicationID string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"application_id"`
	SlotID        string            `gorm:"type:uuid;not null"                             json:"slot_id"`
	ApplicantID   string            `gorm:"type:uuid;not null"                             json:"applicant_id"`
	HostID        string            `gorm:"type:uuid;not null"                             json:"host_id"`
	Message       string            `gorm:"type:varchar(200)"                              json:"message,omitempty"`
	Status        ApplicationStatus `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	Reason        string            `gorm:"type:varchar(200)"                              json:"reason,omitempty"`
	ReviewedAt    *time.Time        `json:"reviewed_at,omitempty"`
	ReviewedBy    *string           `gorm:"type:uuid"                                      json:"reviewed_by,omitempty"`
	CancelledAt   *time.Time        `json:"cancelled_at,omitempty"`
	BaseModel

	// 关联
	Slot      *Slot `gorm:"foreignKey:SlotID;references:SlotID"       json:"slot,omitempty"`
	Applicant *User `gorm:"foreignKey:ApplicantID;references:UserID" json:"applicant,omitempty"`
}

// TableName 指定表名
func (Application) TableName() string { return "applications" }
