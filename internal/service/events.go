package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EventPublisher 领域事件发布接口，*mq.Publisher 即为其实现
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// NopPublisher 未配置消息队列时使用
type NopPublisher struct{}

func (NopPublisher) PublishJSON(context.Context, string, any) error { return nil }

// 事件 routing key
const (
	EventSlotCreated          = "slot.created"
	EventSlotCancelled        = "slot.cancelled"
	EventApplicationCreated   = "application.created"
	EventApplicationApproved  = "application.approved"
	EventApplicationRejected  = "application.rejected"
	EventApplicationCancelled = "application.cancelled"
)

// SlotEvent 约球局事件
type SlotEvent struct {
	SlotID               string    `json:"slot_id"`
	HostID               string    `json:"host_id"`
	Status               string    `json:"status"`
	Sport                string    `json:"sport"`
	StartAt              time.Time `json:"datetime"`
	Reason               string    `json:"reason,omitempty"`
	AffectedApplications int       `json:"affected_applications,omitempty"`
	OccurredAt           time.Time `json:"occurred_at"`
}

// ApplicationEvent 申请事件
type ApplicationEvent struct {
	ApplicationID string    `json:"application_id"`
	SlotID        string    `json:"slot_id"`
	ApplicantID   string    `json:"applicant_id"`
	HostID        string    `json:"host_id"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

const publishTimeout = 3 * time.Second

// publishEvent 事件在状态变更提交后发布，失败只记日志
func publishEvent(ctx context.Context, pub EventPublisher, logger *zap.Logger, key string, v any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := pub.PublishJSON(ctx, key, v); err != nil {
		logger.Warn("发布领域事件失败", zap.String("key", key), zap.Error(err))
	}
}
