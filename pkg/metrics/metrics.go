package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"StockPulse/pkg/model"
)

var (
	// 监控周期次数
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpulse_cycles_total",
			Help: "Total number of alerting cycles by final status",
		},
		[]string{"status"},
	)

	// 监控周期耗时
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockpulse_cycle_duration_seconds",
			Help:    "Alerting cycle latency in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// 推送结果
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpulse_alerts_total",
			Help: "Candidate alerts by dispatch outcome",
		},
		[]string{"outcome"},
	)

	// 行情批次
	QuoteChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpulse_quote_chunks_total",
			Help: "Quote provider batch requests by result",
		},
		[]string{"result"},
	)

	// 通知记录写入失败
	RecordFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stockpulse_record_failures_total",
			Help: "Notification log writes that failed after a successful push",
		},
	)

	// 最近一次周期的订阅股票数
	LastCycleSymbols = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockpulse_last_cycle_symbols",
			Help: "Unique symbols queried in the most recent cycle",
		},
	)
)

// ObserveQuoteChunk 记录一个行情批次
func ObserveQuoteChunk(ok bool) {
	if ok {
		QuoteChunksTotal.WithLabelValues("ok").Inc()
		return
	}
	QuoteChunksTotal.WithLabelValues("failed").Inc()
}

// ObserveAlert 记录一次推送结果
func ObserveAlert(outcome model.DispatchOutcome) {
	AlertsTotal.WithLabelValues(string(outcome)).Inc()
}

// ObserveCycle 记录周期汇总
func ObserveCycle(s *model.CycleSummary) {
	if s == nil {
		return
	}
	CyclesTotal.WithLabelValues(string(s.Status)).Inc()
	CycleDuration.Observe(s.Duration.Seconds())
	LastCycleSymbols.Set(float64(s.SymbolsQueried))
	if s.RecordFailures > 0 {
		RecordFailuresTotal.Add(float64(s.RecordFailures))
	}
}
