package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"courtmate/backend/internal/dto"
	"courtmate/backend/internal/level"
	"courtmate/backend/internal/model"
	"courtmate/backend/internal/repository"
	pkgerrors "courtmate/backend/pkg/errors"
)

// ── 用户模块业务错误 ──

var (
	ErrInvalidSport      = pkgerrors.New(pkgerrors.KindValidation, "不支持的运动项目")
	ErrInvalidLevel      = pkgerrors.New(pkgerrors.KindValidation, "无效的等级")
	ErrInvalidNTRP       = pkgerrors.New(pkgerrors.KindValidation, "NTRP 等级需在 1.0 到 7.0 之间")
	ErrProfileConflict   = pkgerrors.New(pkgerrors.KindInvalidState, "资料已被修改，请刷新后重试")
	ErrEmptyLevelPayload = pkgerrors.New(pkgerrors.KindValidation, "等级更新内容为空")
)

// UserService 用户业务接口
type UserService interface {
	GetMe(ctx context.Context, callerID string) (*dto.UserResponse, error)
	UpdateMe(ctx context.Context, req *dto.UpdateProfileRequest, callerID string) (*dto.UserResponse, error)
	GetPublic(ctx context.Context, id string) (*dto.UserBrief, error)
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── GetMe ──────────────────────

func (s *userService) GetMe(ctx context.Context, callerID string) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── UpdateMe ──────────────────────

func (s *userService) UpdateMe(ctx context.Context, req *dto.UpdateProfileRequest, callerID string) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, callerID)
	if err != nil {
		return nil, err
	}

	var lv *model.UserLevel
	if req.Level != nil {
		if lv, err = s.mergeLevel(user, req.Level); err != nil {
			return nil, err
		}
	}

	// 应用更新字段（仅更新非 nil 字段）
	profileChanged := false
	if req.NickName != nil {
		user.NickName = *req.NickName
		profileChanged = true
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
		profileChanged = true
	}
	if req.Gender != nil {
		user.Gender = *req.Gender
		profileChanged = true
	}
	if req.FavoriteVenues != nil {
		user.FavoriteVenues = uniqueStrings(*req.FavoriteVenues)
		if user.FavoriteVenues == nil {
			user.FavoriteVenues = []string{}
		}
		profileChanged = true
	}
	user.UpdatedBy = &callerID

	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if profileChanged {
			if err := tx.User.Update(ctx, user); err != nil {
				return err
			}
		}
		if lv != nil {
			return tx.User.UpsertLevel(ctx, lv)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrProfileConflict
		}
		s.logger.Error("更新用户资料失败", zap.String("user_id", callerID), zap.Error(err))
		return nil, err
	}

	return s.GetMe(ctx, callerID)
}

// mergeLevel 在已有档案上合并等级更新；只给 NTRP 时按区间推导简化等级
func (s *userService) mergeLevel(user *model.User, req *dto.UpdateLevelRequest) (*model.UserLevel, error) {
	if !model.IsValidSport(req.Sport) {
		return nil, ErrInvalidSport
	}
	if req.Simple == nil && req.NTRP == nil && req.Verified == nil && req.VerifiedType == nil {
		return nil, ErrEmptyLevelPayload
	}

	lv := model.UserLevel{UserID: user.UserID, Sport: req.Sport, Simple: level.Novice}
	if existing := user.LevelFor(req.Sport); existing != nil {
		lv = *existing
		lv.UserID = user.UserID
	}

	if req.NTRP != nil {
		if !level.IsValidNTRP(*req.NTRP) {
			return nil, ErrInvalidNTRP
		}
		ntrp := *req.NTRP
		lv.NTRP = &ntrp
		if req.Simple == nil {
			lv.Simple = level.RangeToSimpleLevel(ntrp)
		}
	}
	if req.Simple != nil {
		if !level.IsValidSimple(*req.Simple) {
			return nil, ErrInvalidLevel
		}
		lv.Simple = *req.Simple
	}

	now := s.now()
	if req.Verified != nil {
		lv.Verified = *req.Verified
	}
	if req.VerifiedType != nil {
		vt := *req.VerifiedType
		lv.VerifiedType = &vt
		lv.VerifiedAt = &now
	}
	lv.LastUpdated = now
	return &lv, nil
}

// ────────────────────── GetPublic ──────────────────────

func (s *userService) GetPublic(ctx context.Context, id string) (*dto.UserBrief, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserBrief(user, ""), nil
}

func (s *userService) getUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}
