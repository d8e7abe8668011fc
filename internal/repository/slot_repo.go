package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"courtmate/backend/internal/model"
	pkgerrors "courtmate/backend/pkg/errors"
	"courtmate/backend/pkg/geo"
)

// SlotFilter 约球局列表筛选条件，零值字段不参与筛选
type SlotFilter struct {
	Box          *geo.Box
	VenueID      string
	Statuses     []model.SlotStatus
	StartFrom    *time.Time // start_at >= StartFrom
	StartAfter   *time.Time // start_at > StartAfter
	StartBefore  *time.Time // start_at <= StartBefore
	Sport        string
	SimpleLevels []string // 与约球局等级要求有交集
	Gender       int      // 非 0 时匹配不限或同性别
	Limit        int
}

// SlotRepository 约球局数据访问接口
type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id string) (*model.Slot, error)
	// AdmitParticipant 原子地追加参与者：仅当 status=open、未满员且尚未加入时生效，
	// 达到所需人数时同时置为 full。条件不满足返回 ErrOptimisticLock。
	AdmitParticipant(ctx context.Context, slotID, userID string) error
	// Cancel 仅当调用者为主办人且约球局仍可取消时生效，否则返回 ErrOptimisticLock
	Cancel(ctx context.Context, slotID, hostID, reason string, now time.Time) error
	List(ctx context.Context, filter SlotFilter) ([]model.Slot, error)
	ListByHost(ctx context.Context, hostID string, limit int) ([]model.Slot, error)
	ListByIDs(ctx context.Context, ids []string, limit int) ([]model.Slot, error)
	CountByVenue(ctx context.Context, venueID string) (int64, error)
	CountOpenByVenues(ctx context.Context, venueIDs []string, now time.Time) (map[string]int64, error)
}

type slotRepo struct {
	db *gorm.DB
}

// NewSlotRepo 创建 SlotRepository 实例
func NewSlotRepo(db *gorm.DB) SlotRepository {
	return &slotRepo{db: db}
}

func (r *slotRepo) Create(ctx context.Context, slot *model.Slot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *slotRepo) GetByID(ctx context.Context, id string) (*model.Slot, error) {
	var slot model.Slot
	err := r.db.WithContext(ctx).
		Where("slot_id = ?", id).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *slotRepo) AdmitParticipant(ctx context.Context, slotID, userID string) error {
	// SET 子句中的列引用均为更新前的值
	result := r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("slot_id = ? AND status = ?", slotID, model.SlotOpen).
		Where("current_count < need_count").
		Where("NOT (? = ANY(participants))", userID).
		Updates(map[string]interface{}{
			"participants":  gorm.Expr("array_append(participants, ?::text)", userID),
			"current_count": gorm.Expr("current_count + 1"),
			"status":        gorm.Expr("CASE WHEN current_count + 1 >= need_count THEN ? ELSE status END", model.SlotFull),
			"version":       gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *slotRepo) Cancel(ctx context.Context, slotID, hostID, reason string, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("slot_id = ? AND host_id = ?", slotID, hostID).
		Where("status IN ?", []model.SlotStatus{model.SlotOpen, model.SlotFull}).
		Where("NOT (status = ? AND start_at <= ?)", model.SlotOpen, now).
		Updates(map[string]interface{}{
			"status":        model.SlotCancelled,
			"cancel_reason": reason,
			"cancelled_at":  now,
			"updated_by":    hostID,
			"version":       gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *slotRepo) List(ctx context.Context, f SlotFilter) ([]model.Slot, error) {
	db := r.db.WithContext(ctx).Model(&model.Slot{})

	if f.Box != nil {
		db = db.Where("venue_latitude BETWEEN ? AND ?", f.Box.MinLat, f.Box.MaxLat).
			Where("venue_longitude BETWEEN ? AND ?", f.Box.MinLng, f.Box.MaxLng)
	}
	if f.VenueID != "" {
		db = db.Where("venue_id = ?", f.VenueID)
	}
	if len(f.Statuses) > 0 {
		db = db.Where("status IN ?", f.Statuses)
	}
	if f.StartFrom != nil {
		db = db.Where("start_at >= ?", *f.StartFrom)
	}
	if f.StartAfter != nil {
		db = db.Where("start_at > ?", *f.StartAfter)
	}
	if f.StartBefore != nil {
		db = db.Where("start_at <= ?", *f.StartBefore)
	}
	if f.Sport != "" {
		db = db.Where("sport = ?", f.Sport)
	}
	if len(f.SimpleLevels) > 0 {
		db = db.Where("simple_levels && ?::text[]", model.StringArray(f.SimpleLevels))
	}
	if f.Gender != model.GenderAny {
		db = db.Where("gender IN ?", []int{model.GenderAny, f.Gender})
	}
	if f.Limit > 0 {
		db = db.Limit(f.Limit)
	}

	var slots []model.Slot
	err := db.Order("start_at ASC").Find(&slots).Error
	return slots, err
}

func (r *slotRepo) ListByHost(ctx context.Context, hostID string, limit int) ([]model.Slot, error) {
	var slots []model.Slot
	err := r.db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("start_at DESC").
		Limit(limit).
		Find(&slots).Error
	return slots, err
}

func (r *slotRepo) ListByIDs(ctx context.Context, ids []string, limit int) ([]model.Slot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var slots []model.Slot
	err := r.db.WithContext(ctx).
		Where("slot_id IN ?", ids).
		Order("start_at DESC").
		Limit(limit).
		Find(&slots).Error
	return slots, err
}

func (r *slotRepo) CountByVenue(ctx context.Context, venueID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("venue_id = ?", venueID).
		Count(&count).Error
	return count, err
}

// CountOpenByVenues 各球场仍在招募且未开始的约球局数量
func (r *slotRepo) CountOpenByVenues(ctx context.Context, venueIDs []string, now time.Time) (map[string]int64, error) {
	counts := make(map[string]int64, len(venueIDs))
	if len(venueIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		VenueID string
		Total   int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Select("venue_id, COUNT(*) AS total").
		Where("venue_id IN ?", venueIDs).
		Where("status = ? AND start_at > ?", model.SlotOpen, now).
		Group("venue_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.VenueID] = row.Total
	}
	return counts, nil
}
