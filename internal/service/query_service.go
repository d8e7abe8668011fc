package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"courtmate/backend/config"
	"courtmate/backend/internal/dto"
	"courtmate/backend/internal/model"
	"courtmate/backend/internal/repository"
	pkgerrors "courtmate/backend/pkg/errors"
	"courtmate/backend/pkg/geo"
)

var (
	ErrInvalidLocation  = pkgerrors.New(pkgerrors.KindValidation, "缺少位置参数")
	ErrInvalidDateRange = pkgerrors.New(pkgerrors.KindValidation, "日期范围无效")
	ErrInvalidSlotsType = pkgerrors.New(pkgerrors.KindValidation, "无效的类型参数，请使用 created 或 joined")
)

// nearbyScanLimit 矩形预筛最多读取的约球局数，精确距离过滤后再截断
const nearbyScanLimit = 500

// QueryService 约球局只读视图
type QueryService interface {
	GetSlotDetail(ctx context.Context, slotID, viewerID string) (*dto.SlotResponse, error)
	GetNearbySlots(ctx context.Context, q *dto.NearbySlotsQuery, viewerID string) ([]dto.SlotResponse, error)
	GetMySlots(ctx context.Context, q *dto.MySlotsQuery, viewerID string) ([]dto.SlotResponse, error)
}

type queryService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewQueryService 创建 QueryService 实例
func NewQueryService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) QueryService {
	return newQueryService(cfg, repo, logger)
}

func newQueryService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) *queryService {
	return &queryService{cfg: cfg, repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── GetSlotDetail ──────────────────────

func (s *queryService) GetSlotDetail(ctx context.Context, slotID, viewerID string) (*dto.SlotResponse, error) {
	slot, err := s.repo.Slot.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		s.logger.Error("查询约球局失败", zap.String("slot_id", slotID), zap.Error(err))
		return nil, err
	}

	users, err := s.repo.User.ListByIDs(ctx, uniqueStrings([]string{slot.HostID, viewerID}, slot.Participants))
	if err != nil {
		s.logger.Error("查询约球局成员失败", zap.String("slot_id", slotID), zap.Error(err))
		return nil, err
	}
	byID := usersByID(users)

	resp := toSlotResponse(slot, s.now())
	resp.Host = toUserBrief(byID[slot.HostID], slot.Sport)

	// 按加入顺序，已不存在的用户跳过
	resp.ParticipantProfiles = make([]dto.UserBrief, 0, len(slot.Participants))
	for _, id := range slot.Participants {
		if u, ok := byID[id]; ok {
			resp.ParticipantProfiles = append(resp.ParticipantProfiles, *toUserBrief(u, slot.Sport))
		}
	}

	if viewerID == slot.HostID {
		apps, err := s.repo.Application.ListBySlotAndStatus(ctx, slotID, model.ApplicationPending)
		if err != nil {
			s.logger.Error("查询待审核申请失败", zap.String("slot_id", slotID), zap.Error(err))
			return nil, err
		}
		resp.Applications = make([]dto.ApplicationResponse, 0, len(apps))
		for i := range apps {
			resp.Applications = append(resp.Applications, *toApplicationResponse(&apps[i], slot.Sport))
		}
		pending := int64(len(apps))
		resp.PendingApplicationsCount = &pending
		return &resp, nil
	}

	hasApplied := false
	app, err := s.repo.Application.GetLatestBySlotAndApplicant(ctx, slotID, viewerID)
	switch {
	case err == nil:
		hasApplied = app.Status.IsLive()
		resp.MyApplication = toApplicationResponse(app, slot.Sport)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Error("查询我的申请失败", zap.String("slot_id", slotID), zap.Error(err))
		return nil, err
	}
	resp.HasApplied = &hasApplied
	attachLevelMatch(&resp, slot, byID[viewerID])

	return &resp, nil
}

// ────────────────────── GetNearbySlots ──────────────────────

func (s *queryService) GetNearbySlots(ctx context.Context, q *dto.NearbySlotsQuery, viewerID string) ([]dto.SlotResponse, error) {
	if q.Latitude == nil || q.Longitude == nil {
		return nil, ErrInvalidLocation
	}
	center := geo.Point{Latitude: *q.Latitude, Longitude: *q.Longitude}
	if !center.Valid() {
		return nil, ErrInvalidLocation
	}
	radius := s.radius(q.Radius)
	now := s.now()
	box := geo.BoundingBox(center, radius)

	filter := repository.SlotFilter{
		Box:          &box,
		Statuses:     []model.SlotStatus{model.SlotOpen},
		StartAfter:   &now,
		Sport:        q.Sport,
		SimpleLevels: q.SimpleLevels,
		Limit:        nearbyScanLimit,
	}
	if q.Gender != nil {
		filter.Gender = *q.Gender
	}
	if q.DateStart != "" && q.DateEnd != "" {
		from, to, err := parseDateRange(q.DateStart, q.DateEnd, now.Location())
		if err != nil {
			return nil, err
		}
		filter.StartFrom, filter.StartBefore = &from, &to
	}

	slots, err := s.repo.Slot.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询附近约球局失败", zap.Error(err))
		return nil, err
	}

	// 精确距离过滤，保持按时间升序
	type located struct {
		slot     *model.Slot
		distance float64
	}
	var within []located
	for i := range slots {
		d := geo.Distance(center, geo.Point{Latitude: slots[i].VenueLatitude, Longitude: slots[i].VenueLongitude})
		if d <= radius {
			within = append(within, located{slot: &slots[i], distance: d})
		}
		if len(within) >= s.cfg.Slot.NearbyLimit {
			break
		}
	}

	picked := make([]model.Slot, 0, len(within))
	for _, l := range within {
		picked = append(picked, *l.slot)
	}
	result, err := s.enrich(ctx, picked, viewerID, now)
	if err != nil {
		return nil, err
	}
	for i := range result {
		d := within[i].distance
		result[i].Distance = &d
	}
	return result, nil
}

// ────────────────────── GetMySlots ──────────────────────

func (s *queryService) GetMySlots(ctx context.Context, q *dto.MySlotsQuery, viewerID string) ([]dto.SlotResponse, error) {
	limit := s.cfg.Slot.MySlotsLimit
	now := s.now()

	var (
		slots []model.Slot
		err   error
	)
	switch q.Type {
	case dto.MySlotsCreated:
		slots, err = s.repo.Slot.ListByHost(ctx, viewerID, limit)
	case dto.MySlotsJoined:
		var ids []string
		ids, err = s.repo.Application.ListApprovedSlotIDs(ctx, viewerID, limit)
		if err == nil {
			slots, err = s.repo.Slot.ListByIDs(ctx, ids, limit)
		}
	default:
		return nil, ErrInvalidSlotsType
	}
	if err != nil {
		s.logger.Error("查询我的约球局失败", zap.String("type", q.Type), zap.String("user_id", viewerID), zap.Error(err))
		return nil, err
	}

	return s.enrich(ctx, slots, viewerID, now)
}

// ── 内部辅助方法 ──

// enrich 附加主办人、等级匹配；浏览者自己主办的约球局附加待审核数
func (s *queryService) enrich(ctx context.Context, slots []model.Slot, viewerID string, now time.Time) ([]dto.SlotResponse, error) {
	result := make([]dto.SlotResponse, 0, len(slots))
	if len(slots) == 0 {
		return result, nil
	}

	userIDs := []string{viewerID}
	var hosted []string
	for i := range slots {
		userIDs = append(userIDs, slots[i].HostID)
		if slots[i].HostID == viewerID {
			hosted = append(hosted, slots[i].SlotID)
		}
	}

	users, err := s.repo.User.ListByIDs(ctx, uniqueStrings(userIDs))
	if err != nil {
		s.logger.Error("查询主办人信息失败", zap.Error(err))
		return nil, err
	}
	byID := usersByID(users)

	pending := map[string]int64{}
	if len(hosted) > 0 {
		pending, err = s.repo.Application.CountPendingBySlots(ctx, hosted)
		if err != nil {
			s.logger.Error("统计待审核申请失败", zap.Error(err))
			return nil, err
		}
	}

	viewer := byID[viewerID]
	for i := range slots {
		slot := &slots[i]
		resp := toSlotResponse(slot, now)
		// 自己主办的约球局以待审核数代替主办人资料与等级匹配，条目字段与他人主办的不同
		if slot.HostID == viewerID {
			count := pending[slot.SlotID]
			resp.PendingApplicationsCount = &count
		} else {
			resp.Host = toUserBrief(byID[slot.HostID], slot.Sport)
			attachLevelMatch(&resp, slot, viewer)
		}
		result = append(result, resp)
	}
	return result, nil
}

func (s *queryService) radius(requested float64) float64 {
	if requested <= 0 {
		return s.cfg.Slot.DefaultRadius
	}
	if requested > s.cfg.Slot.MaxRadius {
		return s.cfg.Slot.MaxRadius
	}
	return requested
}

// parseDateRange 闭区间 [from 当日 00:00, to 当日 24:00)
func parseDateRange(start, end string, loc *time.Location) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation("2006-01-02", start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	to, err := time.ParseInLocation("2006-01-02", end, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	return from, to.Add(24*time.Hour - time.Nanosecond), nil
}
