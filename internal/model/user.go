package model

import (
	"time"

	"gorm.io/datatypes"
)

// 支持的运动项目
const (
	SportTennis    = "tennis"
	SportBadminton = "badminton"
	SportSquash    = "squash"
)

// Sports 全部运动项目，新用户按此初始化等级档案
var Sports = []string{SportTennis, SportBadminton, SportSquash}

// IsValidSport 判断运动项目是否受支持
func IsValidSport(sport string) bool {
	for _, s := range Sports {
		if s == sport {
			return true
		}
	}
	return false
}

// 性别：0 未知/不限 1 男 2 女
const (
	GenderAny    = 0
	GenderMale   = 1
	GenderFemale = 2
)

// User 用户表 — 对应 users
type User struct {
	UserID         string                      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Account        string                      `gorm:"type:varchar(50);not null;uniqueIndex"          json:"account"`
	PasswordHash   string                      `gorm:"type:varchar(255);not null"                     json:"-"`
	NickName       string                      `gorm:"type:varchar(50);not null;default:''"           json:"nick_name"`
	AvatarURL      string                      `gorm:"type:varchar(500);not null;default:''"          json:"avatar_url"`
	Gender         int                         `gorm:"type:smallint;not null;default:0"               json:"gender"`
	Rating         float64                     `gorm:"not null;default:5.0"                           json:"rating"`
	TotalGames     int                         `gorm:"not null;default:0"                             json:"total_games"`
	CreditScore    int                         `gorm:"not null;default:100"                           json:"credit_score"`
	FavoriteVenues datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'"             json:"favorite_venues"`
	VersionedModel

	// 关联
	Levels []UserLevel `gorm:"foreignKey:UserID;references:UserID" json:"levels,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// LevelFor 返回指定运动的等级档案
func (u *User) LevelFor(sport string) *UserLevel {
	for i := range u.Levels {
		if u.Levels[i].Sport == sport {
			return &u.Levels[i]
		}
	}
	return nil
}

// UserLevel 用户运动等级表 — 对应 user_levels（双等级体系：简化等级 + NTRP）
type UserLevel struct {
	UserID           string     `gorm:"type:uuid;primaryKey"          json:"-"`
	Sport            string     `gorm:"type:varchar(20);primaryKey"   json:"sport"`
	Simple           string     `gorm:"type:varchar(10);not null"     json:"simple"`
	NTRP             *float64   `gorm:"column:ntrp;type:numeric(2,1)" json:"ntrp,omitempty"`
	Verified         bool       `gorm:"not null;default:false"        json:"verified"`
	VerifiedType     *string    `gorm:"type:varchar(20)"              json:"verified_type,omitempty"` // video | certificate | coach
	VerifiedAt       *time.Time `json:"verified_at,omitempty"`
	CalibrationCount int        `gorm:"not null;default:0"            json:"calibration_count"`
	LastUpdated      time.Time  `gorm:"not null"                      json:"last_updated"`
}

// TableName 指定表名
func (UserLevel) TableName() string { return "user_levels" }
