package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"courtmate/backend/config"
	"courtmate/backend/internal/dto"
	"courtmate/backend/internal/level"
	"courtmate/backend/internal/model"
	"courtmate/backend/internal/repository"
	pkgerrors "courtmate/backend/pkg/errors"
)

// ── 约球局模块业务错误 ──

var (
	ErrSlotNotFound       = pkgerrors.New(pkgerrors.KindNotFound, "约球局不存在")
	ErrSlotVenueNotFound  = pkgerrors.New(pkgerrors.KindValidation, "球场不存在")
	ErrSlotInvalidTime    = pkgerrors.New(pkgerrors.KindValidation, "约球时间格式无效")
	ErrSlotTimeInPast     = pkgerrors.New(pkgerrors.KindValidation, "约球时间不能早于当前时间")
	ErrSlotInvalidCost    = pkgerrors.New(pkgerrors.KindValidation, "主办人承担费用不能超过总费用")
	ErrSlotNotHost        = pkgerrors.New(pkgerrors.KindPermission, "只有主办人可以取消约球局")
	ErrSlotNotCancellable = pkgerrors.New(pkgerrors.KindInvalidState, "该约球局无法取消")
	ErrSlotClosed         = pkgerrors.New(pkgerrors.KindInvalidState, "该约球局已关闭")
	ErrSlotFull           = pkgerrors.New(pkgerrors.KindCapacity, "该约球局已满员")
	ErrAlreadyParticipant = pkgerrors.New(pkgerrors.KindDuplicate, "您已经是参与者")
)

// 发布约球局的缺省值
const (
	defaultSlotSport    = model.SportTennis
	defaultSlotDuration = 120 // 分钟
	defaultNeedCount    = 2
)

// SlotService 约球局生命周期接口
type SlotService interface {
	Create(ctx context.Context, req *dto.CreateSlotRequest, callerID string) (*dto.SlotResponse, error)
	Cancel(ctx context.Context, slotID string, req *dto.CancelSlotRequest, callerID string) (*dto.CancelSlotResponse, error)
}

type slotService struct {
	cfg    *config.Config
	repo   *repository.Repository
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewSlotService 创建 SlotService 实例
func NewSlotService(cfg *config.Config, repo *repository.Repository, events EventPublisher, logger *zap.Logger) SlotService {
	return newSlotService(cfg, repo, events, logger)
}

func newSlotService(cfg *config.Config, repo *repository.Repository, events EventPublisher, logger *zap.Logger) *slotService {
	if events == nil {
		events = NopPublisher{}
	}
	return &slotService{cfg: cfg, repo: repo, events: events, logger: logger, now: time.Now}
}

// ════════════════════════════════════════════════════════════
// Create
// ════════════════════════════════════════════════════════════

func (s *slotService) Create(ctx context.Context, req *dto.CreateSlotRequest, callerID string) (resp *dto.SlotResponse, err error) {
	ctx, span := tracer.Start(ctx, "SlotService.Create")
	defer func() { endSpan(span, err) }()

	startAt, err := time.Parse(time.RFC3339, req.Datetime)
	if err != nil {
		return nil, ErrSlotInvalidTime
	}
	now := s.now()
	if !startAt.After(now) {
		return nil, ErrSlotTimeInPast
	}

	venue, err := s.repo.Venue.GetByID(ctx, req.VenueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotVenueNotFound
		}
		s.logger.Error("查询球场失败", zap.String("venue_id", req.VenueID), zap.Error(err))
		return nil, err
	}

	slot := &model.Slot{
		Sport:          defaultSlotSport,
		StartAt:        startAt,
		Duration:       defaultSlotDuration,
		VenueID:        venue.VenueID,
		VenueName:      venue.Name,
		VenueLatitude:  venue.Latitude,
		VenueLongitude: venue.Longitude,
		SimpleLevels:   model.StringArray{level.Intermediate},
		Gender:         model.GenderAny,
		NeedCount:      defaultNeedCount,
		CostType:       model.CostFree,
		Participants:   model.StringArray{},
		Description:    req.Description,
		Status:         model.SlotOpen,
		HostID:         callerID,
	}
	if req.Sport != "" {
		slot.Sport = req.Sport
	}
	if req.Duration > 0 {
		slot.Duration = req.Duration
	}

	if r := req.Requirement; r != nil {
		if len(r.SimpleLevels) > 0 {
			slot.SimpleLevels = uniqueStrings(r.SimpleLevels)
		}
		if r.NTRPRange != nil {
			lo, hi := r.NTRPRange.Min, r.NTRPRange.Max
			slot.NTRPMin, slot.NTRPMax = &lo, &hi
		}
		slot.Gender = r.Gender
		if r.NeedCount > 0 {
			slot.NeedCount = r.NeedCount
		}
	}

	if c := req.Cost; c != nil && c.Type != "" && c.Type != model.CostFree {
		if c.HostPays > c.Total {
			return nil, ErrSlotInvalidCost
		}
		slot.CostType = c.Type
		slot.CostTotal = c.Total
		slot.CostHostPays = c.HostPays
	}
	slot.CostPerPerson = model.PerPersonCost(slot.CostType, slot.CostTotal, slot.CostHostPays, slot.NeedCount)

	slot.CreatedBy = &callerID
	slot.UpdatedBy = &callerID

	if err := s.repo.Slot.Create(ctx, slot); err != nil {
		s.logger.Error("创建约球局失败", zap.String("host_id", callerID), zap.Error(err))
		return nil, err
	}
	span.SetAttributes(attribute.String("slot.id", slot.SlotID))

	s.logger.Info("约球局创建成功",
		zap.String("slot_id", slot.SlotID),
		zap.String("host_id", callerID),
		zap.Int("need_count", slot.NeedCount),
	)
	publishEvent(ctx, s.events, s.logger, EventSlotCreated, SlotEvent{
		SlotID:     slot.SlotID,
		HostID:     slot.HostID,
		Status:     string(slot.Status),
		Sport:      slot.Sport,
		StartAt:    slot.StartAt,
		OccurredAt: now,
	})

	result := toSlotResponse(slot, now)
	return &result, nil
}

// ════════════════════════════════════════════════════════════
// Cancel
// ════════════════════════════════════════════════════════════
//
// 约球局自身的取消以条件更新落库后即为最终结果；
// 随后对已通过的申请逐条级联取消，单条失败只记录不回滚。

func (s *slotService) Cancel(ctx context.Context, slotID string, req *dto.CancelSlotRequest, callerID string) (resp *dto.CancelSlotResponse, err error) {
	ctx, span := tracer.Start(ctx, "SlotService.Cancel")
	span.SetAttributes(attribute.String("slot.id", slotID))
	defer func() { endSpan(span, err) }()

	slot, err := s.getSlot(ctx, s.repo, slotID)
	if err != nil {
		return nil, err
	}
	if slot.HostID != callerID {
		return nil, ErrSlotNotHost
	}

	now := s.now()
	if !slot.EffectiveStatus(now).CanTransition(model.SlotCancelled) {
		return nil, ErrSlotNotCancellable
	}

	if err := s.repo.Slot.Cancel(ctx, slotID, callerID, req.Reason, now); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			// 读取与更新之间状态已被改变（并发取消或已过期）
			return nil, ErrSlotNotCancellable
		}
		s.logger.Error("取消约球局失败", zap.String("slot_id", slotID), zap.Error(err))
		return nil, err
	}

	affected, failed, complete := s.cascadeCancel(ctx, slot, now)
	span.SetAttributes(
		attribute.Int("cascade.affected", affected),
		attribute.Int("cascade.failed", len(failed)),
		attribute.Bool("cascade.incomplete", !complete),
	)

	s.logger.Info("约球局已取消",
		zap.String("slot_id", slotID),
		zap.Int("affected_applications", affected),
		zap.Int("failed_applications", len(failed)),
		zap.Bool("cascade_incomplete", !complete),
	)
	publishEvent(ctx, s.events, s.logger, EventSlotCancelled, SlotEvent{
		SlotID:               slot.SlotID,
		HostID:               slot.HostID,
		Status:               string(model.SlotCancelled),
		Sport:                slot.Sport,
		StartAt:              slot.StartAt,
		Reason:               req.Reason,
		AffectedApplications: affected,
		OccurredAt:           now,
	})

	return &dto.CancelSlotResponse{
		SlotID:               slotID,
		Status:               string(model.SlotCancelled),
		AffectedApplications: affected,
		FailedApplications:   failed,
		CascadeIncomplete:    !complete,
	}, nil
}

// cascadeCancel 并发取消该约球局下所有已通过的申请，返回成功数与失败的申请 ID；
// 无法列出已通过申请时 complete 为 false
func (s *slotService) cascadeCancel(ctx context.Context, slot *model.Slot, now time.Time) (affected int, failed []string, complete bool) {
	apps, err := s.repo.Application.ListBySlotAndStatus(ctx, slot.SlotID, model.ApplicationApproved)
	if err != nil {
		s.logger.Error("级联取消：查询已通过申请失败", zap.String("slot_id", slot.SlotID), zap.Error(err))
		return 0, nil, false
	}

	var mu sync.Mutex

	// 子任务总是返回 nil，单条失败不影响其余
	limit := s.cfg.Slot.CascadeConcurrency
	if limit <= 0 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i := range apps {
		app := apps[i]
		g.Go(func() error {
			err := s.repo.Application.CancelApproved(ctx, app.ApplicationID, now)
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				// 已不是 approved，无需处理
				return nil
			}
			if err != nil {
				s.logger.Error("级联取消申请失败",
					zap.String("slot_id", slot.SlotID),
					zap.String("application_id", app.ApplicationID),
					zap.Error(err),
				)
				mu.Lock()
				failed = append(failed, app.ApplicationID)
				mu.Unlock()
				return nil
			}

			mu.Lock()
			affected++
			mu.Unlock()
			publishEvent(ctx, s.events, s.logger, EventApplicationCancelled, ApplicationEvent{
				ApplicationID: app.ApplicationID,
				SlotID:        app.SlotID,
				ApplicantID:   app.ApplicantID,
				HostID:        app.HostID,
				Status:        string(model.ApplicationCancelled),
				OccurredAt:    now,
			})
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(failed)
	return affected, failed, true
}

// ════════════════════════════════════════════════════════════
// admitParticipant — 仅供申请审核调用
// ════════════════════════════════════════════════════════════

// admitParticipant 在 repo（可为事务）上原子地加入参与者；
// 条件更新未命中时重新读取约球局以区分失败原因
func (s *slotService) admitParticipant(ctx context.Context, repo *repository.Repository, slotID, userID string) error {
	err := repo.Slot.AdmitParticipant(ctx, slotID, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		s.logger.Error("加入约球局失败", zap.String("slot_id", slotID), zap.String("user_id", userID), zap.Error(err))
		return err
	}

	slot, err := s.getSlot(ctx, repo, slotID)
	if err != nil {
		return err
	}
	switch {
	case slot.HasParticipant(userID):
		return ErrAlreadyParticipant
	case slot.IsFull() || slot.Status == model.SlotFull:
		return ErrSlotFull
	default:
		return ErrSlotClosed
	}
}

func (s *slotService) getSlot(ctx context.Context, repo *repository.Repository, slotID string) (*model.Slot, error) {
	slot, err := repo.Slot.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		s.logger.Error("查询约球局失败", zap.String("slot_id", slotID), zap.Error(err))
		return nil, err
	}
	return slot, nil
}
