package model

import (
	"math"
	"time"
)

// 费用类型
const (
	CostFree    = "free"
	CostAA      = "aa"
	CostPartial = "partial"
)

// Slot 约球局表 — 对应 slots
//
// 不变量（由条件更新与表约束共同保证）：
//   - CurrentCount == len(Participants)
//   - CurrentCount <= NeedCount
//   - HostID 不在 Participants 中
type Slot struct {
	SlotID         string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"slot_id"`
	Sport          string      `gorm:"type:varchar(20);not null"                      json:"sport"`
	StartAt        time.Time   `gorm:"not null"                                       json:"datetime"`
	Duration       int         `gorm:"not null;default:120"                           json:"duration"` // 分钟
	VenueID        string      `gorm:"type:uuid;not null"                             json:"venue_id"`
	VenueName      string      `gorm:"type:varchar(100);not null"                     json:"venue_name"`
	VenueLatitude  float64     `gorm:"not null"                                       json:"venue_latitude"`
	VenueLongitude float64     `gorm:"not null"                                       json:"venue_longitude"`
	SimpleLevels   StringArray `gorm:"type:text[];not null;default:'{}'"              json:"simple_levels"`
	NTRPMin        *float64    `gorm:"column:ntrp_min;type:numeric(2,1)"              json:"ntrp_min,omitempty"`
	NTRPMax        *float64    `gorm:"column:ntrp_max;type:numeric(2,1)"              json:"ntrp_max,omitempty"`
	Gender         int         `gorm:"type:smallint;not null;default:0"               json:"gender"`
	NeedCount      int         `gorm:"not null"                                       json:"need_count"`
	CostType       string      `gorm:"type:varchar(10);not null;default:'free'"       json:"cost_type"`
	CostTotal      int         `gorm:"not null;default:0"                             json:"cost_total"`
	CostHostPays   int         `gorm:"not null;default:0"                             json:"cost_host_pays"`
	CostPerPerson  int         `gorm:"not null;default:0"                             json:"cost_per_person"`
	CurrentCount   int         `gorm:"not null;default:0"                             json:"current_count"`
	Participants   StringArray `gorm:"type:text[];not null;default:'{}'"              json:"participants"`
	Description    string      `gorm:"type:varchar(500)"                              json:"description"`
	Status         SlotStatus  `gorm:"type:varchar(20);not null;default:'open'"       json:"status"`
	HostID         string      `gorm:"type:uuid;not null"                             json:"host_id"`
	CancelReason   string      `gorm:"type:varchar(200)"                              json:"cancel_reason,omitempty"`
	CancelledAt    *time.Time  `json:"cancelled_at,omitempty"`
	VersionedModel

	// 关联
	Venue *Venue `gorm:"foreignKey:VenueID;references:VenueID" json:"venue,omitempty"`
	Host  *User  `gorm:"foreignKey:HostID;references:UserID"   json:"host,omitempty"`
}

// TableName 指定表名
func (Slot) TableName() string { return "slots" }

// EndAt 结束时间
func (s *Slot) EndAt() time.Time {
	return s.StartAt.Add(time.Duration(s.Duration) * time.Minute)
}

// EffectiveStatus 有效状态（含惰性过期）
func (s *Slot) EffectiveStatus(now time.Time) SlotStatus {
	return EffectiveSlotStatus(s.Status, s.StartAt, now)
}

// IsFull 是否已达到所需人数
func (s *Slot) IsFull() bool {
	return s.CurrentCount >= s.NeedCount
}

// Remaining 剩余名额
func (s *Slot) Remaining() int {
	if s.IsFull() {
		return 0
	}
	return s.NeedCount - s.CurrentCount
}

// HasParticipant 是否已是参与者
func (s *Slot) HasParticipant(userID string) bool {
	return s.Participants.Contains(userID)
}

// PerPersonCost 计算每人应付费用：ceil((total - hostPays) / needCount)，免费局为 0
func PerPersonCost(costType string, total, hostPays, needCount int) int {
	if costType == CostFree || needCount <= 0 {
		return 0
	}
	share := total - hostPays
	if share <= 0 {
		return 0
	}
	return int(math.Ceil(float64(share) / float64(needCount)))
}
