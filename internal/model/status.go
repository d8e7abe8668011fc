package model

import "time"

// ── 约球局状态机 ──

// SlotStatus 约球局状态
type SlotStatus string

const (
	SlotOpen      SlotStatus = "open"      // 招募中
	SlotFull      SlotStatus = "full"      // 已满员
	SlotCancelled SlotStatus = "cancelled" // 已取消
	SlotCompleted SlotStatus = "completed" // 已完成
	SlotExpired   SlotStatus = "expired"   // 已过期（读取时惰性计算，不落库）
)

// slotTransitions 约球局允许的状态迁移
// full → open 对应已通过成员退出，目前没有操作触发，仅保留可表达性
var slotTransitions = map[SlotStatus][]SlotStatus{
	SlotOpen: {SlotFull, SlotCancelled, SlotCompleted, SlotExpired},
	SlotFull: {SlotOpen, SlotCancelled, SlotCompleted},
}

// CanTransition 判断状态迁移是否合法
func (s SlotStatus) CanTransition(to SlotStatus) bool {
	for _, t := range slotTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// IsTerminal 终态不再接受任何迁移
func (s SlotStatus) IsTerminal() bool {
	return len(slotTransitions[s]) == 0
}

// Text 状态显示文本
func (s SlotStatus) Text() string {
	switch s {
	case SlotOpen:
		return "招募中"
	case SlotFull:
		return "已满员"
	case SlotCancelled:
		return "已取消"
	case SlotCompleted:
		return "已完成"
	case SlotExpired:
		return "已过期"
	}
	return string(s)
}

// EffectiveSlotStatus 计算有效状态：仍在招募但开始时间已过的约球局视为 expired
func EffectiveSlotStatus(status SlotStatus, startAt, now time.Time) SlotStatus {
	if status == SlotOpen && !startAt.After(now) {
		return SlotExpired
	}
	return status
}

// ── 申请状态机 ──

// ApplicationStatus 申请状态
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"   // 待审核
	ApplicationApproved  ApplicationStatus = "approved"  // 已通过
	ApplicationRejected  ApplicationStatus = "rejected"  // 已拒绝
	ApplicationCancelled ApplicationStatus = "cancelled" // 已取消（约球局取消时级联）
)

// LiveApplicationStatuses 占用 (slot, applicant) 唯一名额的状态
var LiveApplicationStatuses = []ApplicationStatus{ApplicationPending, ApplicationApproved}

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationPending:  {ApplicationApproved, ApplicationRejected, ApplicationCancelled},
	ApplicationApproved: {ApplicationCancelled},
}

// CanTransition 判断状态迁移是否合法
func (s ApplicationStatus) CanTransition(to ApplicationStatus) bool {
	for _, t := range applicationTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// IsLive pending/approved 为未终结申请
func (s ApplicationStatus) IsLive() bool {
	return s == ApplicationPending || s == ApplicationApproved
}

// Text 状态显示文本
func (s ApplicationStatus) Text() string {
	switch s {
	case ApplicationPending:
		return "待审核"
	case ApplicationApproved:
		return "已通过"
	case ApplicationRejected:
		return "已拒绝"
	case ApplicationCancelled:
		return "已取消"
	}
	return string(s)
}

// ── 球场审核状态 ──

const (
	VenuePending  = "pending"
	VenueVerified = "verified"
)
