package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"courtmate/backend/internal/model"
	pkgerrors "courtmate/backend/pkg/errors"
)

// ApplicationRepository 申请数据访问接口
type ApplicationRepository interface {
	// Create 违反 (slot_id, applicant_id) 未终结唯一索引时返回 gorm.ErrDuplicatedKey
	Create(ctx context.Context, app *model.Application) error
	GetByID(ctx context.Context, id string) (*model.Application, error)
	// MarkReviewed pending → approved/rejected，申请已被处理时返回 ErrOptimisticLock
	MarkReviewed(ctx context.Context, id string, to model.ApplicationStatus, reviewerID, reason string, now time.Time) error
	// CancelApproved approved → cancelled，状态已变化时返回 ErrOptimisticLock
	CancelApproved(ctx context.Context, id string, now time.Time) error
	ListBySlotAndStatus(ctx context.Context, slotID string, status model.ApplicationStatus) ([]model.Application, error)
	GetLatestBySlotAndApplicant(ctx context.Context, slotID, applicantID string) (*model.Application, error)
	ListApprovedSlotIDs(ctx context.Context, applicantID string, limit int) ([]string, error)
	CountPendingBySlots(ctx context.Context, slotIDs []string) (map[string]int64, error)
}

type applicationRepo struct {
	db *gorm.DB
}

// NewApplicationRepo 创建 ApplicationRepository 实例
func NewApplicationRepo(db *gorm.DB) ApplicationRepository {
	return &applicationRepo{db: db}
}

func (r *applicationRepo) Create(ctx context.Context, app *model.Application) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *applicationRepo) GetByID(ctx context.Context, id string) (*model.Application, error) {
	var app model.Application
	err := r.db.WithContext(ctx).
		Where("application_id = ?", id).
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepo) MarkReviewed(ctx context.Context, id string, to model.ApplicationStatus, reviewerID, reason string, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("application_id = ? AND status = ?", id, model.ApplicationPending).
		Updates(map[string]interface{}{
			"status":      to,
			"reason":      reason,
			"reviewed_at": now,
			"reviewed_by": reviewerID,
			"updated_by":  reviewerID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *applicationRepo) CancelApproved(ctx context.Context, id string, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("application_id = ? AND status = ?", id, model.ApplicationApproved).
		Updates(map[string]interface{}{
			"status":       model.ApplicationCancelled,
			"cancelled_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

// ListBySlotAndStatus 按申请时间倒序，附带申请人资料
func (r *applicationRepo) ListBySlotAndStatus(ctx context.Context, slotID string, status model.ApplicationStatus) ([]model.Application, error) {
	var apps []model.Application
	err := r.db.WithContext(ctx).
		Preload("Applicant.Levels").
		Where("slot_id = ? AND status = ?", slotID, status).
		Order("created_at DESC").
		Find(&apps).Error
	return apps, err
}

func (r *applicationRepo) GetLatestBySlotAndApplicant(ctx context.Context, slotID, applicantID string) (*model.Application, error) {
	var app model.Application
	err := r.db.WithContext(ctx).
		Where("slot_id = ? AND applicant_id = ?", slotID, applicantID).
		Order("created_at DESC").
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepo) ListApprovedSlotIDs(ctx context.Context, applicantID string, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("applicant_id = ? AND status = ?", applicantID, model.ApplicationApproved).
		Order("created_at DESC").
		Limit(limit).
		Pluck("slot_id", &ids).Error
	return ids, err
}

func (r *applicationRepo) CountPendingBySlots(ctx context.Context, slotIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(slotIDs))
	if len(slotIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		SlotID string
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Application{}).
		Select("slot_id, COUNT(*) AS total").
		Where("slot_id IN ? AND status = ?", slotIDs, model.ApplicationPending).
		Group("slot_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.SlotID] = row.Total
	}
	return counts, nil
}
