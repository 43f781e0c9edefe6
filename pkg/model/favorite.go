// pkg/model/favorite.go
package model

import "time"

// Favorite 用户自选股
type Favorite struct {
	UserID    string    `gorm:"type:varchar(64);primaryKey" json:"user_id"`
	Symbol    string    `gorm:"type:varchar(20);primaryKey;index" json:"symbol"`
	CreatedAt time.Time `json:"created_at"`
}

func (Favorite) TableName() string {
	return "favorites"
}

// UserSetting 用户提醒设置
type UserSetting struct {
	UserID                string    `gorm:"type:varchar(64);primaryKey" json:"user_id"`
	NotificationThreshold int       `gorm:"default:5;not null" json:"notification_threshold"` // 跌幅百分比 0-100
	Theme                 string    `gorm:"type:varchar(20);default:'system'" json:"theme"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (UserSetting) TableName() string {
	return "user_settings"
}
