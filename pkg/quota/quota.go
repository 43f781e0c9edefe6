// Package quota 限制每个用户每个UTC自然日收到的推送数
package quota

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultLimit 每用户每日推送上限
const DefaultLimit = 5

// CountSource 按用户统计区间内已发送的通知数
type CountSource interface {
	CountByUserBetween(ctx context.Context, start, end time.Time) (map[string]int, error)
}

// DayBounds 返回 now 所在UTC日的 [start, end)
func DayBounds(now time.Time) (time.Time, time.Time) {
	u := now.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Tracker 周期内的配额计数器，只在内存中修改
type Tracker struct {
	mu     sync.Mutex
	counts map[string]int
	limit  int
	start  time.Time
	end    time.Time
}

// Load 读取当日已发送数量并创建计数器
func Load(ctx context.Context, src CountSource, now time.Time, limit int) (*Tracker, error) {
	start, end := DayBounds(now)
	counts, err := src.CountByUserBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("统计当日通知数失败: %w", err)
	}
	t := NewTracker(counts, limit)
	t.start, t.end = start, end
	return t, nil
}

// NewTracker 使用已有计数创建计数器，limit 不会超过 DefaultLimit
func NewTracker(counts map[string]int, limit int) *Tracker {
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}
	copied := make(map[string]int, len(counts))
	for k, v := range counts {
		copied[k] = v
	}
	return &Tracker{counts: copied, limit: limit}
}

// TryReserve 未达上限时占用一个名额并返回 true
func (t *Tracker) TryReserve(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.counts[userID] >= t.limit {
		return false
	}
	t.counts[userID]++
	return true
}

// Count 当前计数
func (t *Tracker) Count(userID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[userID]
}

// Remaining 剩余名额
func (t *Tracker) Remaining(userID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r := t.limit - t.counts[userID]; r > 0 {
		return r
	}
	return 0
}

// Window 计数所对应的UTC日
func (t *Tracker) Window() (time.Time, time.Time) {
	return t.start, t.end
}
