package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"courtmate/backend/internal/model"
	pkgerrors "courtmate/backend/pkg/errors"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByAccount(ctx context.Context, account string) (*model.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	UpsertLevel(ctx context.Context, level *model.UserLevel) error
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

// Create 同时写入 Levels 关联
func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("Levels").
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByAccount(ctx context.Context, account string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("Levels").
		Where("account = ?", account).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) ListByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []model.User
	err := r.db.WithContext(ctx).
		Preload("Levels").
		Where("user_id IN ?", ids).
		Find(&users).Error
	return users, err
}

// Update 更新资料字段（乐观锁）
func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	oldVersion := user.Version
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ? AND version = ?", user.UserID, oldVersion).
		Updates(map[string]interface{}{
			"nick_name":       user.NickName,
			"avatar_url":      user.AvatarURL,
			"gender":          user.Gender,
			"favorite_venues": user.FavoriteVenues,
			"updated_by":      user.UpdatedBy,
			"version":         oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	user.Version = oldVersion + 1
	return nil
}

// UpsertLevel 按 (user_id, sport) 写入或覆盖等级档案
func (r *userRepo) UpsertLevel(ctx context.Context, level *model.UserLevel) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "sport"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"simple", "ntrp", "verified", "verified_type", "verified_at", "calibration_count", "last_updated",
			}),
		}).
		Create(level).Error
}
