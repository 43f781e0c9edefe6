package model

import "time"

// CycleState 监控周期状态
type CycleState string

const (
	StateIdle                 CycleState = "idle"
	StateLoadingSubscriptions CycleState = "loading_subscriptions"
	StateFetchingQuotes       CycleState = "fetching_quotes"
	StateMatching             CycleState = "matching"
	StateDispatching          CycleState = "dispatching"
	StateSummarizing          CycleState = "summarizing"
	StateFailed               CycleState = "failed"
)

// CycleStatus 周期最终结果
type CycleStatus string

const (
	StatusCompleted CycleStatus = "completed"
	StatusFailed    CycleStatus = "failed"
	StatusCancelled CycleStatus = "cancelled"
)

// CycleSummary 一次监控周期的汇总
type CycleSummary struct {
	Success bool        `json:"success"`
	Status  CycleStatus `json:"status"`
	State   CycleState  `json:"state"`
	// FailedAt 失败时所处的阶段
	FailedAt CycleState `json:"failed_at,omitempty"`
	Error    string     `json:"error,omitempty"`
	Message  string     `json:"message,omitempty"`

	FavoritesProcessed int `json:"favorites_processed"`
	SymbolsQueried     int `json:"symbols_queried"`
	QuotesRetrieved    int `json:"quotes_retrieved"`
	FailedChunks       int `json:"failed_chunks"`
	CandidateAlerts    int `json:"candidate_alerts"`
	AlertsSent         int `json:"alerts_sent"`
	SuppressedByQuota  int `json:"suppressed_by_quota"`
	DispatchFailures   int `json:"dispatch_failures"`
	RecordFailures     int `json:"recording_failures"`
	SkippedCancelled   int `json:"skipped_cancelled"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
}
