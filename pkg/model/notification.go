// pkg/model/notification.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationRecord 已发送的推送记录，只追加不修改
type NotificationRecord struct {
	ID               string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string    `gorm:"type:varchar(64);not null;index:idx_notification_user_created,priority:1" json:"user_id"`
	Symbol           string    `gorm:"type:varchar(20);not null" json:"symbol"`
	Message          string    `gorm:"type:text;not null" json:"message"`
	Price            float64   `json:"price"`
	PercentageChange float64   `json:"percentage_change"`
	Threshold        float64   `json:"threshold"`
	DeliveryID       string    `gorm:"type:varchar(128)" json:"delivery_id,omitempty"`
	CreatedAt        time.Time `gorm:"index:idx_notification_user_created,priority:2" json:"created_at"`
}

func (n *NotificationRecord) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

func (NotificationRecord) TableName() string {
	return "notification_logs"
}
