// pkg/database/favorite.go
package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"StockPulse/pkg/model"
)

type FavoriteDB struct {
	db *gorm.DB
}

func (p *PostgresDB) Favorite() *FavoriteDB {
	return &FavoriteDB{db: p.db}
}

// ListAll 读取全部自选股
func (f *FavoriteDB) ListAll(ctx context.Context) ([]model.Favorite, error) {
	var favorites []model.Favorite
	err := f.db.WithContext(ctx).
		Order("symbol ASC, user_id ASC").
		Find(&favorites).Error
	if err != nil {
		return nil, fmt.Errorf("查询自选股失败: %w", err)
	}
	return favorites, nil
}
