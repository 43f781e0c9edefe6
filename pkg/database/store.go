package database

import (
	"context"
	"time"

	"StockPulse/pkg/model"
)

// Store 把各表访问器组合成流水线使用的存储接口
type Store struct {
	pg *PostgresDB
}

func NewStore(pg *PostgresDB) *Store {
	return &Store{pg: pg}
}

func (s *Store) ListFavorites(ctx context.Context) ([]model.Favorite, error) {
	return s.pg.Favorite().ListAll(ctx)
}

func (s *Store) ListSettings(ctx context.Context) ([]model.UserSetting, error) {
	return s.pg.Setting().ListAll(ctx)
}

func (s *Store) CountByUserBetween(ctx context.Context, start, end time.Time) (map[string]int, error) {
	return s.pg.Notification().CountByUserBetween(ctx, start, end)
}

func (s *Store) CreateNotification(ctx context.Context, record *model.NotificationRecord) error {
	return s.pg.Notification().Create(ctx, record)
}

func (s *Store) RecentNotifications(ctx context.Context, userID string, limit int) ([]model.NotificationRecord, error) {
	return s.pg.Notification().ListByUser(ctx, userID, limit)
}
