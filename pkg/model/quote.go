package model

import "time"

// Quote 实时行情快照，不落库
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"` // 带符号，负数为下跌
	Timestamp     time.Time `json:"timestamp"`
}

// Subscriber 订阅某只股票的用户及其阈值
type Subscriber struct {
	UserID    string  `json:"user_id"`
	Threshold float64 `json:"threshold"`
}

// CandidateAlert 通过阈值判断、尚未经过配额检查的提醒
type CandidateAlert struct {
	UserID    string  `json:"user_id"`
	Symbol    string  `json:"symbol"`
	Threshold float64 `json:"threshold"`
	Quote     Quote   `json:"quote"`
}
