package model

import "time"

// AlertType 提醒类型
type AlertType string

const (
	AlertTypePriceDrop AlertType = "price_drop"
)

// DispatchOutcome 单次推送结果
type DispatchOutcome string

const (
	OutcomeSent       DispatchOutcome = "sent"
	OutcomeSuppressed DispatchOutcome = "suppressed" // 当日配额已用完
	OutcomeFailed     DispatchOutcome = "failed"
)

// AlertEvent 推送成功后发布到消息总线的事件
type AlertEvent struct {
	Type             AlertType `json:"type"`
	UserID           string    `json:"user_id"`
	Symbol           string    `json:"symbol"`
	Price            float64   `json:"price"`
	PercentageChange float64   `json:"percentage_change"`
	Threshold        float64   `json:"threshold"`
	Message          string    `json:"message"`
	DeliveryID       string    `json:"delivery_id,omitempty"`
	SentAt           time.Time `json:"sent_at"`
}
