package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"StockPulse/pkg/model"
)

// Repository 内存数据仓库，用于演练模式和测试
type Repository struct {
	favorites     []model.Favorite
	settings      map[string]model.UserSetting
	notifications []model.NotificationRecord
	mutex         sync.RWMutex

	// 注入的故障，便于演练失败路径
	favoritesErr error
	settingsErr  error
	countErr     error
	createErr    error
}

// NewRepository 创建新的数据仓库
func NewRepository() *Repository {
	return &Repository{
		settings: make(map[string]model.UserSetting),
	}
}

// AddFavorite 添加自选股
func (r *Repository) AddFavorite(userID, symbol string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.favorites = append(r.favorites, model.Favorite{
		UserID:    userID,
		Symbol:    symbol,
		CreatedAt: time.Now(),
	})
}

// SetThreshold 设置用户提醒阈值
func (r *Repository) SetThreshold(userID string, threshold int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	setting := r.settings[userID]
	setting.UserID = userID
	setting.NotificationThreshold = threshold
	setting.UpdatedAt = time.Now()
	r.settings[userID] = setting
}

// SeedNotification 写入一条历史通知，用于预置当日配额
func (r *Repository) SeedNotification(userID, symbol string, at time.Time) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.notifications = append(r.notifications, model.NotificationRecord{
		ID:        uuid.New().String(),
		UserID:    userID,
		Symbol:    symbol,
		CreatedAt: at,
	})
}

// FailFavorites 让读取自选股返回错误
func (r *Repository) FailFavorites(err error) { r.mutex.Lock(); r.favoritesErr = err; r.mutex.Unlock() }

// FailSettings 让读取用户设置返回错误
func (r *Repository) FailSettings(err error) { r.mutex.Lock(); r.settingsErr = err; r.mutex.Unlock() }

// FailCounts 让统计通知数返回错误
func (r *Repository) FailCounts(err error) { r.mutex.Lock(); r.countErr = err; r.mutex.Unlock() }

// FailCreates 让写入通知记录返回错误
func (r *Repository) FailCreates(err error) { r.mutex.Lock(); r.createErr = err; r.mutex.Unlock() }

func (r *Repository) ListFavorites(ctx context.Context) ([]model.Favorite, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.favoritesErr != nil {
		return nil, r.favoritesErr
	}
	out := make([]model.Favorite, len(r.favorites))
	copy(out, r.favorites)
	return out, nil
}

func (r *Repository) ListSettings(ctx context.Context) ([]model.UserSetting, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.settingsErr != nil {
		return nil, r.settingsErr
	}
	out := make([]model.UserSetting, 0, len(r.settings))
	for _, s := range r.settings {
		out = append(out, s)
	}
	return out, nil
}

// CountByUserBetween 统计 [start, end) 区间内每个用户的通知数
func (r *Repository) CountByUserBetween(ctx context.Context, start, end time.Time) (map[string]int, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.countErr != nil {
		return nil, r.countErr
	}
	counts := make(map[string]int)
	for _, n := range r.notifications {
		if !n.CreatedAt.Before(start) && n.CreatedAt.Before(end) {
			counts[n.UserID]++
		}
	}
	return counts, nil
}

func (r *Repository) CreateNotification(ctx context.Context, record *model.NotificationRecord) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.createErr != nil {
		return r.createErr
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	r.notifications = append(r.notifications, *record)
	return nil
}

// RecentNotifications 按时间倒序返回用户的通知记录
func (r *Repository) RecentNotifications(ctx context.Context, userID string, limit int) ([]model.NotificationRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []model.NotificationRecord
	for _, n := range r.notifications {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Notifications 返回全部通知记录的副本
func (r *Repository) Notifications() []model.NotificationRecord {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]model.NotificationRecord, len(r.notifications))
	copy(out, r.notifications)
	return out
}
