package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"StockPulse/pkg/config"
	"StockPulse/pkg/model"
)

// PostgresDB PostgreSQL数据库连接
type PostgresDB struct {
	db *gorm.DB
}

// NewPostgresDB 创建新的数据库连接
func NewPostgresDB(cfg *config.Config, logger *zap.Logger) (*PostgresDB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: NewGormLogger(logger.Named("gorm")),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库连接池失败: %w", err)
	}

	// 设置连接池参数
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("测试数据库连接失败: %w", err)
	}

	logger.Info("数据库连接成功",
		zap.String("host", cfg.Database.Postgres.Host),
		zap.String("dbname", cfg.Database.Postgres.DBName))

	return NewFromGorm(db), nil
}

// NewFromGorm 包装已有的gorm连接
func NewFromGorm(db *gorm.DB) *PostgresDB {
	return &PostgresDB{db: db}
}

// AutoMigrate 同步表结构
func (p *PostgresDB) AutoMigrate() error {
	if err := p.db.AutoMigrate(
		&model.Favorite{},
		&model.UserSetting{},
		&model.NotificationRecord{},
	); err != nil {
		return fmt.Errorf("同步表结构失败: %w", err)
	}
	return nil
}

// Ping 检查连接
func (p *PostgresDB) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("获取数据库连接池失败: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭数据库连接
func (p *PostgresDB) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
