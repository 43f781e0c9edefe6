// pkg/database/setting.go
package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"StockPulse/pkg/model"
)

type SettingDB struct {
	db *gorm.DB
}

func (p *PostgresDB) Setting() *SettingDB {
	return &SettingDB{db: p.db}
}

// ListAll 读取全部用户设置
func (s *SettingDB) ListAll(ctx context.Context) ([]model.UserSetting, error) {
	var settings []model.UserSetting
	if err := s.db.WithContext(ctx).Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("查询用户设置失败: %w", err)
	}
	return settings, nil
}
