package repository

import (
	"context"

	"gorm.io/gorm"

	"courtmate/backend/internal/model"
	"courtmate/backend/pkg/geo"
)

// VenueRepository 球场数据访问接口
type VenueRepository interface {
	Create(ctx context.Context, venue *model.Venue) error
	GetByID(ctx context.Context, id string) (*model.Venue, error)
	// ListInBox 经纬度矩形预筛，精确距离由调用方计算
	ListInBox(ctx context.Context, box geo.Box, statuses []string) ([]model.Venue, error)
	ListByNameInBox(ctx context.Context, name string, box geo.Box) ([]model.Venue, error)
}

type venueRepo struct {
	db *gorm.DB
}

// NewVenueRepo 创建 VenueRepository 实例
func NewVenueRepo(db *gorm.DB) VenueRepository {
	return &venueRepo{db: db}
}

func (r *venueRepo) Create(ctx context.Context, venue *model.Venue) error {
	return r.db.WithContext(ctx).Create(venue).Error
}

func (r *venueRepo) GetByID(ctx context.Context, id string) (*model.Venue, error) {
	var venue model.Venue
	err := r.db.WithContext(ctx).
		Where("venue_id = ?", id).
		First(&venue).Error
	if err != nil {
		return nil, err
	}
	return &venue, nil
}

func (r *venueRepo) ListInBox(ctx context.Context, box geo.Box, statuses []string) ([]model.Venue, error) {
	var venues []model.Venue
	err := r.db.WithContext(ctx).
		Where("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where("longitude BETWEEN ? AND ?", box.MinLng, box.MaxLng).
		Where("status IN ?", statuses).
		Find(&venues).Error
	return venues, err
}

func (r *venueRepo) ListByNameInBox(ctx context.Context, name string, box geo.Box) ([]model.Venue, error) {
	var venues []model.Venue
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		Where("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where("longitude BETWEEN ? AND ?", box.MinLng, box.MaxLng).
		Find(&venues).Error
	return venues, err
}
