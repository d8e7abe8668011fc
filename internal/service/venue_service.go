package service

import (
	"context"
	"errors"
	"sort"
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

// ── 球场模块业务错误 ──

var (
	ErrVenueNotFound = pkgerrors.New(pkgerrors.KindNotFound, "球场不存在")
	ErrVenueExists   = pkgerrors.New(pkgerrors.KindDuplicate, "该球场已存在")
)

const (
	venueDedupeRadius   = 100.0 // 米，同名球场在此范围内视为重复
	nearbyVenuesLimit   = 50
	upcomingSlotsWindow = 7 * 24 * time.Hour
	upcomingSlotsLimit  = 20
)

// VenueService 球场业务接口
type VenueService interface {
	Create(ctx context.Context, req *dto.CreateVenueRequest, callerID string) (*dto.VenueResponse, error)
	Nearby(ctx context.Context, q *dto.NearbyVenuesQuery) ([]dto.VenueResponse, error)
	Detail(ctx context.Context, id, viewerID string) (*dto.VenueDetailResponse, error)
}

type venueService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewVenueService 创建 VenueService 实例
func NewVenueService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) VenueService {
	return &venueService{cfg: cfg, repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── Create ──────────────────────

func (s *venueService) Create(ctx context.Context, req *dto.CreateVenueRequest, callerID string) (*dto.VenueResponse, error) {
	if req.Latitude == nil || req.Longitude == nil {
		return nil, ErrInvalidLocation
	}
	center := geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if !center.Valid() {
		return nil, ErrInvalidLocation
	}

	// 同名且相距不足 100 米视为同一球场
	candidates, err := s.repo.Venue.ListByNameInBox(ctx, req.Name, geo.BoundingBox(center, venueDedupeRadius))
	if err != nil {
		s.logger.Error("查询同名球场失败", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}
	for i := range candidates {
		p := geo.Point{Latitude: candidates[i].Latitude, Longitude: candidates[i].Longitude}
		if geo.Distance(center, p) <= venueDedupeRadius {
			return nil, ErrVenueExists
		}
	}

	venue := &model.Venue{
		Name:          req.Name,
		Latitude:      center.Latitude,
		Longitude:     center.Longitude,
		Province:      req.Address.Province,
		City:          req.Address.City,
		District:      req.Address.District,
		AddressDetail: req.Address.Detail,
		CourtTotal:    req.Courts.Total,
		CourtIndoor:   req.Courts.Indoor,
		CourtLighting: true,
		CourtSurface:  req.Courts.Surface,
		Facilities:    nonNil(req.Facilities),
		Photos:        nonNil(req.Photos),
		PricePeak:     req.Pricing.Peak,
		PriceOffPeak:  req.Pricing.OffPeak,
		ContactPhone:  req.Contact.Phone,
		ContactHours:  req.Contact.Hours,
		Status:        model.VenuePending,
	}
	if venue.CourtTotal == 0 {
		venue.CourtTotal = 1
	}
	if venue.CourtSurface == "" {
		venue.CourtSurface = "hardCourt"
	}
	if req.Courts.Lighting != nil {
		venue.CourtLighting = *req.Courts.Lighting
	}
	venue.CreatedBy = &callerID
	venue.UpdatedBy = &callerID

	if err := s.repo.Venue.Create(ctx, venue); err != nil {
		s.logger.Error("创建球场失败", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}

	s.logger.Info("球场已创建", zap.String("venue_id", venue.VenueID), zap.String("created_by", callerID))
	resp := toVenueResponse(venue)
	return &resp, nil
}

// ────────────────────── Nearby ──────────────────────

func (s *venueService) Nearby(ctx context.Context, q *dto.NearbyVenuesQuery) ([]dto.VenueResponse, error) {
	if q.Latitude == nil || q.Longitude == nil {
		return nil, ErrInvalidLocation
	}
	center := geo.Point{Latitude: *q.Latitude, Longitude: *q.Longitude}
	if !center.Valid() {
		return nil, ErrInvalidLocation
	}
	radius := q.Radius
	if radius <= 0 {
		radius = s.cfg.Slot.DefaultRadius
	}
	if radius > s.cfg.Slot.MaxRadius {
		radius = s.cfg.Slot.MaxRadius
	}

	venues, err := s.repo.Venue.ListInBox(ctx, geo.BoundingBox(center, radius), []string{model.VenueVerified, model.VenuePending})
	if err != nil {
		s.logger.Error("查询附近球场失败", zap.Error(err))
		return nil, err
	}

	type located struct {
		venue    *model.Venue
		distance float64
	}
	var within []located
	for i := range venues {
		d := geo.Distance(center, geo.Point{Latitude: venues[i].Latitude, Longitude: venues[i].Longitude})
		if d <= radius {
			within = append(within, located{venue: &venues[i], distance: d})
		}
	}
	sort.SliceStable(within, func(i, j int) bool { return within[i].distance < within[j].distance })
	if len(within) > nearbyVenuesLimit {
		within = within[:nearbyVenuesLimit]
	}

	ids := make([]string, 0, len(within))
	for _, l := range within {
		ids = append(ids, l.venue.VenueID)
	}
	counts, err := s.repo.Slot.CountOpenByVenues(ctx, ids, s.now())
	if err != nil {
		s.logger.Error("统计球场约球局失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.VenueResponse, 0, len(within))
	for _, l := range within {
		resp := toVenueResponse(l.venue)
		d := l.distance
		open := counts[l.venue.VenueID]
		resp.Distance = &d
		resp.OpenSlotsCount = &open
		result = append(result, resp)
	}
	return result, nil
}

// ────────────────────── Detail ──────────────────────

func (s *venueService) Detail(ctx context.Context, id, viewerID string) (*dto.VenueDetailResponse, error) {
	venue, err := s.repo.Venue.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVenueNotFound
		}
		s.logger.Error("查询球场失败", zap.String("venue_id", id), zap.Error(err))
		return nil, err
	}

	now := s.now()
	until := now.Add(upcomingSlotsWindow)
	slots, err := s.repo.Slot.List(ctx, repository.SlotFilter{
		VenueID:     id,
		Statuses:    []model.SlotStatus{model.SlotOpen, model.SlotFull},
		StartAfter:  &now,
		StartBefore: &until,
		Limit:       upcomingSlotsLimit,
	})
	if err != nil {
		s.logger.Error("查询球场约球局失败", zap.String("venue_id", id), zap.Error(err))
		return nil, err
	}

	total, err := s.repo.Slot.CountByVenue(ctx, id)
	if err != nil {
		s.logger.Error("统计球场约球局失败", zap.String("venue_id", id), zap.Error(err))
		return nil, err
	}

	userIDs := []string{viewerID}
	if venue.CreatedBy != nil {
		userIDs = append(userIDs, *venue.CreatedBy)
	}
	for i := range slots {
		userIDs = append(userIDs, slots[i].HostID)
	}
	users, err := s.repo.User.ListByIDs(ctx, uniqueStrings(userIDs))
	if err != nil {
		s.logger.Error("查询用户信息失败", zap.Error(err))
		return nil, err
	}
	byID := usersByID(users)

	resp := &dto.VenueDetailResponse{
		VenueResponse: toVenueResponse(venue),
		UpcomingSlots: make([]dto.SlotResponse, 0, len(slots)),
		TotalSlots:    total,
	}
	if venue.CreatedBy != nil {
		resp.Creator = toUserBrief(byID[*venue.CreatedBy], "")
	}
	for i := range slots {
		sr := toSlotResponse(&slots[i], now)
		sr.Host = toUserBrief(byID[slots[i].HostID], slots[i].Sport)
		attachLevelMatch(&sr, &slots[i], byID[viewerID])
		resp.UpcomingSlots = append(resp.UpcomingSlots, sr)
	}
	return resp, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
