// pkg/database/notification.go
package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"StockPulse/pkg/model"
)

type NotificationDB struct {
	db *gorm.DB
}

func (p *PostgresDB) Notification() *NotificationDB {
	return &NotificationDB{db: p.db}
}

func (n *NotificationDB) Create(ctx context.Context, record *model.NotificationRecord) error {
	if err := n.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("保存通知记录失败: %w", err)
	}
	return nil
}

type userCount struct {
	UserID string
	Total  int
}

// CountByUserBetween 统计 [start, end) 区间内每个用户的通知数
func (n *NotificationDB) CountByUserBetween(ctx context.Context, start, end time.Time) (map[string]int, error) {
	var rows []userCount
	err := n.db.WithContext(ctx).
		Model(&model.NotificationRecord{}).
		Select("user_id, COUNT(*) AS total").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("统计用户通知数失败: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.UserID] = r.Total
	}
	return counts, nil
}

// ListByUser 查询用户最近的通知记录
func (n *NotificationDB) ListByUser(ctx context.Context, userID string, limit int) ([]model.NotificationRecord, error) {
	var records []model.NotificationRecord
	err := n.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("查询用户通知记录失败: %w", err)
	}
	return records, nil
}
