package model

import "gorm.io/datatypes"

// Venue 球场表 — 对应 venues
// 用户创建的球场默认 pending，审核通过后为 verified
type Venue struct {
	VenueID           string                      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"venue_id"`
	Name              string                      `gorm:"type:varchar(100);not null"                     json:"name"`
	Latitude          float64                     `gorm:"not null"                                       json:"latitude"`
	Longitude         float64                     `gorm:"not null"                                       json:"longitude"`
	Province          string                      `gorm:"type:varchar(50)"                               json:"province"`
	City              string                      `gorm:"type:varchar(50)"                               json:"city"`
	District          string                      `gorm:"type:varchar(50)"                               json:"district"`
	AddressDetail     string                      `gorm:"type:varchar(200)"                              json:"address_detail"`
	CourtTotal        int                         `gorm:"not null;default:1"                             json:"court_total"`
	CourtIndoor       bool                        `gorm:"not null;default:false"                         json:"court_indoor"`
	CourtLighting     bool                        `gorm:"not null;default:true"                          json:"court_lighting"`
	CourtSurface      string                      `gorm:"type:varchar(20);not null;default:'hardCourt'"  json:"court_surface"` // hardCourt | clayCourt | grassCourt
	Facilities        datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'"               json:"facilities"`
	Photos            datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'"               json:"photos"`
	RatingOverall     float64                     `gorm:"not null;default:0"                             json:"rating_overall"`
	RatingEnvironment float64                     `gorm:"not null;default:0"                             json:"rating_environment"`
	RatingService     float64                     `gorm:"not null;default:0"                             json:"rating_service"`
	RatingCount       int                         `gorm:"not null;default:0"                             json:"rating_count"`
	PricePeak         int                         `gorm:"not null;default:0"                             json:"price_peak"`
	PriceOffPeak      int                         `gorm:"not null;default:0"                             json:"price_off_peak"`
	ContactPhone      string                      `gorm:"type:varchar(30)"                               json:"contact_phone"`
	ContactHours      string                      `gorm:"type:varchar(100)"                              json:"contact_hours"`
	Status            string                      `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"` // pending | verified
	BaseModel
}

// TableName 指定表名
func (Venue) TableName() string { return "venues" }
