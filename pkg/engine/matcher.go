// pkg/engine/matcher.go
package engine

import (
	"math"
	"sort"

	"StockPulse/pkg/model"
)

// Triggered 跌幅达到或超过阈值时触发，涨幅永不触发
func Triggered(changePercent, threshold float64) bool {
	return changePercent <= -math.Abs(threshold)
}

// Match 纯函数：对每只有行情的股票和每个订阅用户判断是否触发提醒
// 输出按股票、用户排序，不考虑配额
func Match(groups map[string][]model.Subscriber, quotes map[string]model.Quote) []model.CandidateAlert {
	symbols := make([]string, 0, len(groups))
	for symbol := range groups {
		if _, ok := quotes[symbol]; ok {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)

	var candidates []model.CandidateAlert
	for _, symbol := range symbols {
		quote := quotes[symbol]
		if math.IsNaN(quote.ChangePercent) {
			continue
		}

		subs := append([]model.Subscriber(nil), groups[symbol]...)
		sort.SliceStable(subs, func(i, j int) bool { return subs[i].UserID < subs[j].UserID })

		for _, sub := range subs {
			if !Triggered(quote.ChangePercent, sub.Threshold) {
				continue
			}
			candidates = append(candidates, model.CandidateAlert{
				UserID:    sub.UserID,
				Symbol:    symbol,
				Threshold: sub.Threshold,
				Quote:     quote,
			})
		}
	}
	return candidates
}

// GroupByUser 按用户拆分候选提醒，保持原有顺序
func GroupByUser(candidates []model.CandidateAlert) ([]string, map[string][]model.CandidateAlert) {
	byUser := make(map[string][]model.CandidateAlert)
	var users []string
	for _, c := range candidates {
		if _, ok := byUser[c.UserID]; !ok {
			users = append(users, c.UserID)
		}
		byUser[c.UserID] = append(byUser[c.UserID], c)
	}
	sort.Strings(users)
	return users, byUser
}
