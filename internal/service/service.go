package service

import (
	"go.uber.org/zap"

	"courtmate/backend/config"
	"courtmate/backend/internal/repository"
	"courtmate/backend/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth        AuthService
	User        UserService
	Venue       VenueService
	Slot        SlotService
	Application ApplicationService
	Query       QueryService
	Export      ExportService
}

// NewService 创建 Service 聚合
// blacklist 与 events 可为 nil：前者退化为不记录登出，后者不发布领域事件
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	events EventPublisher,
	logger *zap.Logger,
) *Service {
	if events == nil {
		events = NopPublisher{}
	}
	engine := newSlotService(cfg, repo, events, logger)
	return &Service{
		Auth:        NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		User:        NewUserService(repo, logger),
		Venue:       NewVenueService(cfg, repo, logger),
		Slot:        engine,
		Application: newApplicationService(repo, engine, events, logger),
		Query:       NewQueryService(cfg, repo, logger),
		Export:      NewExportService(repo, logger),
	}
}
