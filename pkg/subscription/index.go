// Package subscription 把自选股和用户阈值整理成按股票分组的订阅表
package subscription

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"StockPulse/pkg/model"
)

const (
	MinThreshold = 0
	MaxThreshold = 100
)

// Loader 自选股和用户设置的数据来源
type Loader interface {
	ListFavorites(ctx context.Context) ([]model.Favorite, error)
	ListSettings(ctx context.Context) ([]model.UserSetting, error)
}

// Index 一个周期内的订阅快照
type Index struct {
	// Groups 股票 -> 订阅用户，每只股票只出现一次
	Groups map[string][]model.Subscriber
	// Symbols 去重后按字母排序的股票列表
	Symbols []string
	// Favorites 读到的自选股条数
	Favorites int
}

// Empty 没有任何订阅
func (i *Index) Empty() bool {
	return len(i.Groups) == 0
}

// Load 读取自选股和设置并构建订阅表
func Load(ctx context.Context, loader Loader, defaultThreshold int) (*Index, error) {
	favorites, err := loader.ListFavorites(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载自选股失败: %w", err)
	}
	if len(favorites) == 0 {
		return Build(nil, nil, defaultThreshold), nil
	}

	settings, err := loader.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载用户设置失败: %w", err)
	}

	return Build(favorites, settings, defaultThreshold), nil
}

// Build 纯函数：按股票分组，缺少设置的用户使用默认阈值
func Build(favorites []model.Favorite, settings []model.UserSetting, defaultThreshold int) *Index {
	thresholds := make(map[string]int, len(settings))
	for _, s := range settings {
		thresholds[s.UserID] = s.NotificationThreshold
	}

	idx := &Index{
		Groups:    make(map[string][]model.Subscriber),
		Favorites: len(favorites),
	}

	seen := make(map[[2]string]struct{}, len(favorites))
	for _, f := range favorites {
		symbol := NormalizeSymbol(f.Symbol)
		if symbol == "" || f.UserID == "" {
			continue
		}
		key := [2]string{f.UserID, symbol}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		threshold, ok := thresholds[f.UserID]
		if !ok {
			threshold = defaultThreshold
		}
		idx.Groups[symbol] = append(idx.Groups[symbol], model.Subscriber{
			UserID:    f.UserID,
			Threshold: float64(ClampThreshold(threshold)),
		})
	}

	idx.Symbols = make([]string, 0, len(idx.Groups))
	for symbol, subs := range idx.Groups {
		idx.Symbols = append(idx.Symbols, symbol)
		sort.Slice(subs, func(a, b int) bool { return subs[a].UserID < subs[b].UserID })
	}
	sort.Strings(idx.Symbols)

	return idx
}

// NormalizeSymbol 去空白并转大写
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ClampThreshold 限制在 [0,100]
func ClampThreshold(threshold int) int {
	switch {
	case threshold < MinThreshold:
		return MinThreshold
	case threshold > MaxThreshold:
		return MaxThreshold
	}
	return threshold
}
