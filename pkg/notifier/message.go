package notifier

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"StockPulse/pkg/model"
)

// Title 推送标题
func Title(symbol string) string {
	return fmt.Sprintf("%s price alert", symbol)
}

// Body 推送正文，例如 "AAPL dropped 5.23% to $187.50"
func Body(quote model.Quote) string {
	return fmt.Sprintf("%s dropped %.2f%% to $%.2f", quote.Symbol, math.Abs(quote.ChangePercent), quote.Price)
}

// BuildMessage 根据候选提醒构建推送
func BuildMessage(c model.CandidateAlert, now time.Time) PushMessage {
	ts := c.Quote.Timestamp
	if ts.IsZero() {
		ts = now
	}
	return PushMessage{
		UserID: c.UserID,
		Title:  Title(c.Symbol),
		Body:   Body(c.Quote),
		Data: map[string]string{
			"type":      string(model.AlertTypePriceDrop),
			"symbol":    c.Symbol,
			"user_id":   c.UserID,
			"price":     strconv.FormatFloat(c.Quote.Price, 'f', 2, 64),
			"change":    strconv.FormatFloat(c.Quote.ChangePercent, 'f', 2, 64),
			"threshold": strconv.FormatFloat(c.Threshold, 'f', -1, 64),
			"timestamp": ts.UTC().Format(time.RFC3339),
		},
	}
}
