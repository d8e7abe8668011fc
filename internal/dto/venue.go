package dto

// ── 球场模块 DTO ──

// VenueAddress 球场地址
type VenueAddress struct {
	Province string `json:"province" binding:"omitempty,max=50"`
	City     string `json:"city"     binding:"omitempty,max=50"`
	District string `json:"district" binding:"omitempty,max=50"`
	Detail   string `json:"detail"   binding:"omitempty,max=200"`
}

// VenueCourts 场地属性
type VenueCourts struct {
	Total    int    `json:"total"    binding:"omitempty,min=1,max=100"`
	Indoor   bool   `json:"indoor"`
	Lighting *bool  `json:"lighting"`
	Surface  string `json:"surface"  binding:"omitempty,oneof=hardCourt clayCourt grassCourt"`
}

// VenuePricing 价格（元/小时）
type VenuePricing struct {
	Peak    int `json:"peak"     binding:"omitempty,min=0"`
	OffPeak int `json:"off_peak" binding:"omitempty,min=0"`
}

// VenueContact 联系方式
type VenueContact struct {
	Phone string `json:"phone" binding:"omitempty,max=30"`
	Hours string `json:"hours" binding:"omitempty,max=100"`
}

// CreateVenueRequest 创建球场请求
type CreateVenueRequest struct {
	Name       string       `json:"name"       binding:"required,max=100"`
	Latitude   *float64     `json:"latitude"   binding:"required,min=-90,max=90"`
	Longitude  *float64     `json:"longitude"  binding:"required,min=-180,max=180"`
	Address    VenueAddress `json:"address"`
	Courts     VenueCourts  `json:"courts"`
	Facilities []string     `json:"facilities" binding:"omitempty,max=20,dive,max=20"`
	Pricing    VenuePricing `json:"pricing"`
	Contact    VenueContact `json:"contact"`
	Photos     []string     `json:"photos"     binding:"omitempty,max=9,dive,url"`
}

// NearbyVenuesQuery 附近球场查询参数
type NearbyVenuesQuery struct {
	Latitude  *float64 `form:"lat"    binding:"required,min=-90,max=90"`
	Longitude *float64 `form:"lng"    binding:"required,min=-180,max=180"`
	Radius    float64  `form:"radius" binding:"omitempty,gt=0"` // 米
}

// VenueResponse 球场信息
type VenueResponse struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Latitude       float64      `json:"latitude"`
	Longitude      float64      `json:"longitude"`
	Address        VenueAddress `json:"address"`
	Courts         VenueCourts  `json:"courts"`
	Facilities     []string     `json:"facilities"`
	Photos         []string     `json:"photos"`
	Rating         float64      `json:"rating"`
	RatingCount    int          `json:"rating_count"`
	Pricing        VenuePricing `json:"pricing"`
	Contact        VenueContact `json:"contact"`
	Status         string       `json:"status"`
	CreatedBy      string       `json:"created_by,omitempty"`
	CreatedAt      string       `json:"created_at"`
	Distance       *float64     `json:"distance,omitempty"` // 米
	OpenSlotsCount *int64       `json:"open_slots_count,omitempty"`
}

// VenueDetailResponse 球场详情：附近 7 天的约球局、累计约球数与创建者
type VenueDetailResponse struct {
	VenueResponse
	UpcomingSlots []SlotResponse `json:"upcoming_slots"`
	TotalSlots    int64          `json:"total_slots"`
	Creator       *UserBrief     `json:"creator,omitempty"`
}
