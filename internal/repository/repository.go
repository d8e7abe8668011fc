package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User        UserRepository
	Venue       VenueRepository
	Slot        SlotRepository
	Application ApplicationRepository

	// Tx 在同一数据库事务中执行多个 Repository 操作
	Tx Transactor
}

// Transactor 事务执行器：fn 收到绑定到事务的 Repository 聚合，
// fn 返回错误时整体回滚
type Transactor interface {
	Transaction(ctx context.Context, fn func(repo *Repository) error) error
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:        NewUserRepo(db),
		Venue:       NewVenueRepo(db),
		Slot:        NewSlotRepo(db),
		Application: NewApplicationRepo(db),
		Tx:          &gormTransactor{db: db},
	}
}

type gormTransactor struct {
	db *gorm.DB
}

func (t *gormTransactor) Transaction(ctx context.Context, fn func(repo *Repository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
