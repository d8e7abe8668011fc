package service

import (
	"time"

	"courtmate/backend/internal/dto"
	"courtmate/backend/internal/level"
	"courtmate/backend/internal/model"
)

// ── 模型 → DTO 转换 ──

func toLevelResponse(l *model.UserLevel) *dto.LevelResponse {
	if l == nil {
		return nil
	}
	return &dto.LevelResponse{
		Sport:        l.Sport,
		Simple:       l.Simple,
		NTRP:         l.NTRP,
		Verified:     l.Verified,
		VerifiedType: l.VerifiedType,
		VerifiedAt:   dto.FormatTimePtr(l.VerifiedAt),
		LastUpdated:  dto.FormatTime(l.LastUpdated),
	}
}

func toLevelResponses(levels []model.UserLevel) []dto.LevelResponse {
	result := make([]dto.LevelResponse, 0, len(levels))
	for i := range levels {
		result = append(result, *toLevelResponse(&levels[i]))
	}
	return result
}

func toUserResponse(u *model.User) dto.UserResponse {
	favorites := []string(u.FavoriteVenues)
	if favorites == nil {
		favorites = []string{}
	}
	return dto.UserResponse{
		ID:             u.UserID,
		Account:        u.Account,
		NickName:       u.NickName,
		AvatarURL:      u.AvatarURL,
		Gender:         u.Gender,
		Rating:         u.Rating,
		TotalGames:     u.TotalGames,
		CreditScore:    u.CreditScore,
		FavoriteVenues: favorites,
		Levels:         toLevelResponses(u.Levels),
		CreatedAt:      dto.FormatTime(u.CreatedAt),
	}
}

// toUserBrief 脱敏资料；sport 非空时只附带该运动的等级
func toUserBrief(u *model.User, sport string) *dto.UserBrief {
	if u == nil {
		return nil
	}
	brief := &dto.UserBrief{
		ID:          u.UserID,
		NickName:    u.NickName,
		AvatarURL:   u.AvatarURL,
		Gender:      u.Gender,
		Rating:      u.Rating,
		CreditScore: u.CreditScore,
		TotalGames:  u.TotalGames,
	}
	if sport != "" {
		brief.Level = toLevelResponse(u.LevelFor(sport))
	} else {
		brief.Levels = toLevelResponses(u.Levels)
	}
	return brief
}

func toApplicationResponse(app *model.Application, sport string) *dto.ApplicationResponse {
	return &dto.ApplicationResponse{
		ID:          app.ApplicationID,
		SlotID:      app.SlotID,
		ApplicantID: app.ApplicantID,
		HostID:      app.HostID,
		Message:     app.Message,
		Status:      string(app.Status),
		StatusText:  app.Status.Text(),
		Reason:      app.Reason,
		ReviewedAt:  dto.FormatTimePtr(app.ReviewedAt),
		CancelledAt: dto.FormatTimePtr(app.CancelledAt),
		CreatedAt:   dto.FormatTime(app.CreatedAt),
		Applicant:   toUserBrief(app.Applicant, sport),
	}
}

// slotRequirement 约球局等级要求转为匹配器输入
func slotRequirement(slot *model.Slot) level.Requirement {
	req := level.Requirement{SimpleLevels: []string(slot.SimpleLevels)}
	if slot.NTRPMin != nil && slot.NTRPMax != nil {
		req.NTRPRange = &level.Range{Min: *slot.NTRPMin, Max: *slot.NTRPMax}
	}
	return req
}

func userLevelInput(l *model.UserLevel) level.UserLevel {
	return level.UserLevel{Simple: l.Simple, NTRP: l.NTRP}
}

func toSlotResponse(slot *model.Slot, now time.Time) dto.SlotResponse {
	effective := slot.EffectiveStatus(now)
	participants := []string(slot.Participants)
	if participants == nil {
		participants = []string{}
	}
	simpleLevels := []string(slot.SimpleLevels)
	if simpleLevels == nil {
		simpleLevels = []string{}
	}

	return dto.SlotResponse{
		ID:       slot.SlotID,
		Sport:    slot.Sport,
		Datetime: dto.FormatTime(slot.StartAt),
		EndAt:    dto.FormatTime(slot.EndAt()),
		Duration: slot.Duration,
		Venue: dto.SlotVenue{
			ID:        slot.VenueID,
			Name:      slot.VenueName,
			Latitude:  slot.VenueLatitude,
			Longitude: slot.VenueLongitude,
		},
		Requirement: dto.RequirementResponse{
			SimpleLevels: simpleLevels,
			NTRPRange:    slotRequirement(slot).NTRPRange,
			Gender:       slot.Gender,
			NeedCount:    slot.NeedCount,
		},
		Cost: dto.CostResponse{
			Type:      slot.CostType,
			Total:     slot.CostTotal,
			HostPays:  slot.CostHostPays,
			PerPerson: slot.CostPerPerson,
		},
		CurrentCount:    slot.CurrentCount,
		Participants:    participants,
		Description:     slot.Description,
		Status:          string(slot.Status),
		EffectiveStatus: string(effective),
		StatusText:      effective.Text(),
		HostID:          slot.HostID,
		CancelReason:    slot.CancelReason,
		CancelledAt:     dto.FormatTimePtr(slot.CancelledAt),
		CreatedAt:       dto.FormatTime(slot.CreatedAt),
	}
}

// attachLevelMatch 浏览者在该运动有等级档案时附加匹配结果
func attachLevelMatch(resp *dto.SlotResponse, slot *model.Slot, viewer *model.User) {
	if viewer == nil || viewer.UserID == slot.HostID {
		return
	}
	lv := viewer.LevelFor(slot.Sport)
	if lv == nil {
		return
	}
	req := slotRequirement(slot)
	matched := level.Matches(userLevelInput(lv), req)
	score := level.MatchScore(userLevelInput(lv), req)
	resp.LevelMatch = &matched
	resp.MatchScore = &score
}

func toVenueResponse(v *model.Venue) dto.VenueResponse {
	lighting := v.CourtLighting
	createdBy := ""
	if v.CreatedBy != nil {
		createdBy = *v.CreatedBy
	}
	facilities := []string(v.Facilities)
	if facilities == nil {
		facilities = []string{}
	}
	photos := []string(v.Photos)
	if photos == nil {
		photos = []string{}
	}
	return dto.VenueResponse{
		ID:        v.VenueID,
		Name:      v.Name,
		Latitude:  v.Latitude,
		Longitude: v.Longitude,
		Address: dto.VenueAddress{
			Province: v.Province,
			City:     v.City,
			District: v.District,
			Detail:   v.AddressDetail,
		},
		Courts: dto.VenueCourts{
			Total:    v.CourtTotal,
			Indoor:   v.CourtIndoor,
			Lighting: &lighting,
			Surface:  v.CourtSurface,
		},
		Facilities:  facilities,
		Photos:      photos,
		Rating:      v.RatingOverall,
		RatingCount: v.RatingCount,
		Pricing: dto.VenuePricing{
			Peak:    v.PricePeak,
			OffPeak: v.PriceOffPeak,
		},
		Contact: dto.VenueContact{
			Phone: v.ContactPhone,
			Hours: v.ContactHours,
		},
		Status:    v.Status,
		CreatedBy: createdBy,
		CreatedAt: dto.FormatTime(v.CreatedAt),
	}
}

// uniqueStrings 保序去重
func uniqueStrings(values ...[]string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, list := range values {
		for _, v := range list {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}

func usersByID(users []model.User) map[string]*model.User {
	m := make(map[string]*model.User, len(users))
	for i := range users {
		m[users[i].UserID] = &users[i]
	}
	return m
}
