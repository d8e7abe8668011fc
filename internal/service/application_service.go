package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"courtmate/backend/internal/dto"
	"courtmate/backend/internal/model"
	"courtmate/backend/internal/repository"
	pkgerrors "courtmate/backend/pkg/errors"
)

// ── 申请模块业务错误 ──

var (
	ErrApplicationNotFound  = pkgerrors.New(pkgerrors.KindNotFound, "申请不存在")
	ErrApplicationProcessed = pkgerrors.New(pkgerrors.KindInvalidState, "申请已处理，无法重复操作")
	ErrApplyOwnSlot         = pkgerrors.New(pkgerrors.KindPermission, "您是主办人，无需申请")
	ErrAlreadyApplied       = pkgerrors.New(pkgerrors.KindDuplicate, "您已申请过该约球局")
	ErrNotSlotReviewer      = pkgerrors.New(pkgerrors.KindPermission, "只有主办人可以审核申请")
	ErrSlotClosedForReview  = pkgerrors.New(pkgerrors.KindInvalidState, "约球局已关闭，无法审核")
	ErrInvalidAction        = pkgerrors.New(pkgerrors.KindValidation, "无效的操作类型")
)

// ApplicationService 申请准入接口
type ApplicationService interface {
	Apply(ctx context.Context, req *dto.ApplyRequest, callerID string) (*dto.ApplicationResponse, error)
	Respond(ctx context.Context, applicationID string, req *dto.RespondRequest, callerID string) (*dto.RespondResponse, error)
}

// participantAdmitter 约球局引擎提供的加入操作
type participantAdmitter interface {
	admitParticipant(ctx context.Context, repo *repository.Repository, slotID, userID string) error
}

type applicationService struct {
	repo   *repository.Repository
	engine participantAdmitter
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

func newApplicationService(repo *repository.Repository, engine participantAdmitter, events EventPublisher, logger *zap.Logger) *applicationService {
	if events == nil {
		events = NopPublisher{}
	}
	return &applicationService{repo: repo, engine: engine, events: events, logger: logger, now: time.Now}
}

// ════════════════════════════════════════════════════════════
// Apply
// ════════════════════════════════════════════════════════════
//
// 未终结申请的唯一性由数据库部分唯一索引在写入时保证，不做查询预检。

func (s *applicationService) Apply(ctx context.Context, req *dto.ApplyRequest, callerID string) (resp *dto.ApplicationResponse, err error) {
	ctx, span := tracer.Start(ctx, "ApplicationService.Apply")
	span.SetAttributes(attribute.String("slot.id", req.SlotID))
	defer func() { endSpan(span, err) }()

	slot, err := s.repo.Slot.GetByID(ctx, req.SlotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		s.logger.Error("查询约球局失败", zap.String("slot_id", req.SlotID), zap.Error(err))
		return nil, err
	}

	now := s.now()
	effective := slot.EffectiveStatus(now)
	switch {
	case slot.IsFull() || effective == model.SlotFull:
		return nil, ErrSlotFull
	case effective != model.SlotOpen:
		return nil, ErrSlotClosed
	case slot.HostID == callerID:
		return nil, ErrApplyOwnSlot
	case slot.HasParticipant(callerID):
		return nil, ErrAlreadyParticipant
	}

	app := &model.Application{
		SlotID:      slot.SlotID,
		ApplicantID: callerID,
		HostID:      slot.HostID,
		Message:     req.Message,
		Status:      model.ApplicationPending,
	}
	app.CreatedBy = &callerID
	app.UpdatedBy = &callerID

	if err := s.repo.Application.Create(ctx, app); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyApplied
		}
		s.logger.Error("创建申请失败",
			zap.String("slot_id", slot.SlotID),
			zap.String("applicant_id", callerID),
			zap.Error(err),
		)
		return nil, err
	}
	span.SetAttributes(attribute.String("application.id", app.ApplicationID))

	s.logger.Info("申请已提交",
		zap.String("application_id", app.ApplicationID),
		zap.String("slot_id", slot.SlotID),
		zap.String("applicant_id", callerID),
	)
	publishEvent(ctx, s.events, s.logger, EventApplicationCreated, ApplicationEvent{
		ApplicationID: app.ApplicationID,
		SlotID:        app.SlotID,
		ApplicantID:   app.ApplicantID,
		HostID:        app.HostID,
		Status:        string(app.Status),
		OccurredAt:    now,
	})

	return toApplicationResponse(app, slot.Sport), nil
}

// ════════════════════════════════════════════════════════════
// Respond
// ════════════════════════════════════════════════════════════
//
// 通过：在同一事务内 pending → approved 并原子加入约球局，任一步失败整体回滚。
// 拒绝：pending → rejected，约球局不变。

func (s *applicationService) Respond(ctx context.Context, applicationID string, req *dto.RespondRequest, callerID string) (resp *dto.RespondResponse, err error) {
	ctx, span := tracer.Start(ctx, "ApplicationService.Respond")
	span.SetAttributes(
		attribute.String("application.id", applicationID),
		attribute.String("action", req.Action),
	)
	defer func() { endSpan(span, err) }()

	var target model.ApplicationStatus
	switch req.Action {
	case dto.ActionApprove:
		target = model.ApplicationApproved
	case dto.ActionReject:
		target = model.ApplicationRejected
	default:
		return nil, ErrInvalidAction
	}

	app, err := s.repo.Application.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		s.logger.Error("查询申请失败", zap.String("application_id", applicationID), zap.Error(err))
		return nil, err
	}
	if !app.Status.CanTransition(target) || app.Status != model.ApplicationPending {
		return nil, ErrApplicationProcessed
	}

	slot, err := s.repo.Slot.GetByID(ctx, app.SlotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		s.logger.Error("查询约球局失败", zap.String("slot_id", app.SlotID), zap.Error(err))
		return nil, err
	}
	if slot.HostID != callerID {
		return nil, ErrNotSlotReviewer
	}

	now := s.now()
	if target == model.ApplicationApproved && (slot.IsFull() || slot.Status == model.SlotFull) {
		return nil, ErrSlotFull
	}
	if slot.EffectiveStatus(now) != model.SlotOpen {
		return nil, ErrSlotClosedForReview
	}

	if target == model.ApplicationApproved {
		err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
			if err := s.markReviewed(ctx, tx, app.ApplicationID, target, callerID, req.Reason, now); err != nil {
				return err
			}
			return s.engine.admitParticipant(ctx, tx, slot.SlotID, app.ApplicantID)
		})
	} else {
		err = s.markReviewed(ctx, s.repo, app.ApplicationID, target, callerID, req.Reason, now)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("申请已审核",
		zap.String("application_id", app.ApplicationID),
		zap.String("slot_id", slot.SlotID),
		zap.String("status", string(target)),
	)

	key := EventApplicationRejected
	if target == model.ApplicationApproved {
		key = EventApplicationApproved
	}
	publishEvent(ctx, s.events, s.logger, key, ApplicationEvent{
		ApplicationID: app.ApplicationID,
		SlotID:        app.SlotID,
		ApplicantID:   app.ApplicantID,
		HostID:        app.HostID,
		Status:        string(target),
		Reason:        req.Reason,
		OccurredAt:    now,
	})

	return &dto.RespondResponse{
		ApplicationID: app.ApplicationID,
		Status:        string(target),
	}, nil
}

func (s *applicationService) markReviewed(ctx context.Context, repo *repository.Repository, id string, to model.ApplicationStatus, reviewerID, reason string, now time.Time) error {
	err := repo.Application.MarkReviewed(ctx, id, to, reviewerID, reason, now)
	if err == nil {
		return nil
	}
	if errors.Is(err, pkgerrors.ErrOptimisticLock) {
		return ErrApplicationProcessed
	}
	s.logger.Error("更新申请状态失败", zap.String("application_id", id), zap.Error(err))
	return err
}
