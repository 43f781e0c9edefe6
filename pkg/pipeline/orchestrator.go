// Package pipeline 串联订阅、行情、匹配、配额、推送和记录，执行一次完整的监控周期
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"StockPulse/pkg/collector"
	"StockPulse/pkg/config"
	"StockPulse/pkg/engine"
	"StockPulse/pkg/metrics"
	"StockPulse/pkg/model"
	"StockPulse/pkg/monitor"
	"StockPulse/pkg/notifier"
	"StockPulse/pkg/quota"
	"StockPulse/pkg/subscription"
)

var errCancelled = errors.New("监控周期被取消")

// Store 流水线使用的全部持久化能力
type Store interface {
	subscription.Loader
	quota.CountSource
	notifier.RecordWriter
}

// EventPublisher 事件发布，失败不影响周期结果
type EventPublisher interface {
	PublishAlert(ctx context.Context, event model.AlertEvent) error
	PublishCycleSummary(ctx context.Context, summary *model.CycleSummary) error
}

// Deps 外部依赖
type Deps struct {
	Store     Store
	Quotes    collector.QuoteFetcher
	Pusher    notifier.Pusher
	Publisher EventPublisher   // 可选
	Monitor   *monitor.Monitor // 可选
	Now       func() time.Time // 可选，默认 time.Now
}

// Orchestrator 监控周期编排器
type Orchestrator struct {
	cfg    *config.Config
	deps   Deps
	logger *zap.Logger

	fetcher    *collector.BatchFetcher
	dispatcher *notifier.Dispatcher
	recorder   *notifier.Recorder

	mu    sync.RWMutex
	state model.CycleState
}

// New 创建编排器，cfg 在进程内只读
func New(cfg *config.Config, deps Deps, logger *zap.Logger) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	fetcher := collector.NewBatchFetcher(deps.Quotes, collector.BatchOptions{
		BatchSize:      cfg.QuoteProvider.BatchSize,
		MaxConcurrency: cfg.QuoteProvider.MaxConcurrency,
		Timeout:        cfg.QuoteProvider.Timeout,
	}, logger.Named("collector"))
	fetcher.OnChunk = metrics.ObserveQuoteChunk

	return &Orchestrator{
		cfg:        cfg,
		deps:       deps,
		logger:     logger,
		fetcher:    fetcher,
		dispatcher: notifier.NewDispatcher(deps.Pusher, cfg.Push.Timeout, logger.Named("dispatcher"), notifier.WithClock(deps.Now)),
		recorder:   notifier.NewRecorder(deps.Store, 5*time.Second, logger.Named("recorder"), notifier.WithClock(deps.Now)),
		state:      model.StateIdle,
	}
}

// State 当前状态
func (o *Orchestrator) State() model.CycleState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) transition(s *model.CycleSummary, next model.CycleState) {
	o.mu.Lock()
	o.state = next
	o.mu.Unlock()
	s.State = next
	o.logger.Debug("周期状态变更", zap.String("state", string(next)))
}

// Run 执行一次监控周期，任何情况下都返回汇总
func (o *Orchestrator) Run(ctx context.Context) (summary *model.CycleSummary) {
	startedAt := o.deps.Now()
	summary = &model.CycleSummary{
		StartedAt: startedAt.UTC(),
		State:     model.StateIdle,
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("监控周期异常", zap.Any("panic", r), zap.Stack("stack"))
			o.fail(summary, fmt.Errorf("监控周期异常: %v", r))
		}
		o.finish(ctx, summary, startedAt)
	}()

	if err := o.cfg.ValidateCredentials(); err != nil {
		o.fail(summary, err)
		return summary
	}

	// 加载订阅
	o.transition(summary, model.StateLoadingSubscriptions)
	idx, err := subscription.Load(ctx, o.deps.Store, o.cfg.Alerting.DefaultThreshold)
	if err != nil {
		o.fail(summary, err)
		return summary
	}
	summary.FavoritesProcessed = idx.Favorites
	if idx.Empty() {
		summary.Message = "没有自选股，跳过本周期"
		o.complete(summary)
		return summary
	}
	summary.SymbolsQueried = len(idx.Symbols)

	if o.cancelled(ctx, summary) {
		return summary
	}

	// 获取行情
	o.transition(summary, model.StateFetchingQuotes)
	batch := o.fetcher.Fetch(ctx, idx.Symbols)
	summary.QuotesRetrieved = len(batch.Quotes)
	summary.FailedChunks = batch.FailedChunks
	if len(batch.FailedSymbols) > 0 {
		o.logger.Info("部分股票没有行情", zap.Strings("symbols", batch.FailedSymbols))
	}

	if o.cancelled(ctx, summary) {
		return summary
	}

	// 读取当日配额并匹配
	o.transition(summary, model.StateMatching)
	tracker, err := quota.Load(ctx, o.deps.Store, startedAt, o.cfg.Alerting.DailyQuota)
	if err != nil {
		o.fail(summary, err)
		return summary
	}
	windowStart, windowEnd := tracker.Window()
	o.logger.Debug("已读取当日配额",
		zap.Time("window_start", windowStart),
		zap.Time("window_end", windowEnd))
	candidates := engine.Match(idx.Groups, batch.Quotes)
	summary.CandidateAlerts = len(candidates)

	// 推送
	o.transition(summary, model.StateDispatching)
	if err := o.dispatchAll(ctx, tracker, candidates, summary); err != nil {
		o.fail(summary, err)
		return summary
	}

	if o.cancelled(ctx, summary) {
		return summary
	}

	o.transition(summary, model.StateSummarizing)
	o.complete(summary)
	return summary
}

// dispatchAll 用户之间并发，同一用户内按顺序发送
func (o *Orchestrator) dispatchAll(ctx context.Context, tracker *quota.Tracker, candidates []model.CandidateAlert, summary *model.CycleSummary) error {
	users, byUser := engine.GroupByUser(candidates)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Alerting.DispatchConcurrency)

	for _, userID := range users {
		alerts := byUser[userID]
		if ctx.Err() != nil {
			mu.Lock()
			summary.SkippedCancelled += len(alerts)
			mu.Unlock()
			continue
		}

		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("推送协程异常", zap.String("user_id", userID), zap.Any("panic", r), zap.Stack("stack"))
					err = fmt.Errorf("推送协程异常: %v", r)
				}
			}()

			for i, c := range alerts {
				if ctx.Err() != nil {
					mu.Lock()
					summary.SkippedCancelled += len(alerts) - i
					mu.Unlock()
					return nil
				}

				attempt := o.dispatcher.Dispatch(ctx, tracker, c)
				metrics.ObserveAlert(attempt.Outcome)

				var recordErr error
				if attempt.Outcome == model.OutcomeSent {
					recordErr = o.recorder.Record(ctx, attempt)
					o.publishAlert(ctx, attempt)
				}

				mu.Lock()
				switch attempt.Outcome {
				case model.OutcomeSent:
					summary.AlertsSent++
					if recordErr != nil {
						summary.RecordFailures++
					}
				case model.OutcomeSuppressed:
					summary.SuppressedByQuota++
				case model.OutcomeFailed:
					summary.DispatchFailures++
				}
				mu.Unlock()
			}
			return nil
		})
	}

	return g.Wait()
}

func (o *Orchestrator) publishAlert(ctx context.Context, a notifier.Attempt) {
	if o.deps.Publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	event := model.AlertEvent{
		Type:             model.AlertTypePriceDrop,
		UserID:           a.Candidate.UserID,
		Symbol:           a.Candidate.Symbol,
		Price:            a.Candidate.Quote.Price,
		PercentageChange: a.Candidate.Quote.ChangePercent,
		Threshold:        a.Candidate.Threshold,
		Message:          a.Message.Body,
		DeliveryID:       a.DeliveryID,
		SentAt:           a.SentAt,
	}
	if err := o.deps.Publisher.PublishAlert(pubCtx, event); err != nil {
		o.logger.Warn("发布提醒事件失败", zap.String("user_id", event.UserID), zap.String("symbol", event.Symbol), zap.Error(err))
	}
}

// cancelled 检查取消信号，已取消时写入汇总
func (o *Orchestrator) cancelled(ctx context.Context, s *model.CycleSummary) bool {
	if ctx.Err() == nil {
		return false
	}
	s.Success = false
	s.Status = model.StatusCancelled
	s.Error = fmt.Errorf("%w: %v", errCancelled, ctx.Err()).Error()
	o.transition(s, model.StateIdle)
	return true
}

func (o *Orchestrator) complete(s *model.CycleSummary) {
	s.Success = true
	s.Status = model.StatusCompleted
	o.transition(s, model.StateIdle)
}

func (o *Orchestrator) fail(s *model.CycleSummary, err error) {
	s.Success = false
	s.Status = model.StatusFailed
	s.FailedAt = s.State
	s.Error = err.Error()
	o.transition(s, model.StateFailed)
}

func (o *Orchestrator) finish(ctx context.Context, s *model.CycleSummary, startedAt time.Time) {
	finishedAt := o.deps.Now()
	s.FinishedAt = finishedAt.UTC()
	s.Duration = finishedAt.Sub(startedAt)

	fields := []zap.Field{
		zap.String("status", string(s.Status)),
		zap.Int("favorites", s.FavoritesProcessed),
		zap.Int("symbols", s.SymbolsQueried),
		zap.Int("quotes", s.QuotesRetrieved),
		zap.Int("failed_chunks", s.FailedChunks),
		zap.Int("candidates", s.CandidateAlerts),
		zap.Int("sent", s.AlertsSent),
		zap.Int("suppressed", s.SuppressedByQuota),
		zap.Int("dispatch_failures", s.DispatchFailures),
		zap.Int("record_failures", s.RecordFailures),
		zap.Duration("duration", s.Duration),
	}
	if s.Success {
		o.logger.Info("监控周期完成", fields...)
	} else {
		o.logger.Error("监控周期未成功", append(fields, zap.String("failed_at", string(s.FailedAt)), zap.String("error", s.Error))...)
	}

	metrics.ObserveCycle(s)
	if o.deps.Monitor != nil {
		o.deps.Monitor.RecordCycle(s)
	}
	if o.deps.Publisher != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
		defer cancel()
		if err := o.deps.Publisher.PublishCycleSummary(pubCtx, s); err != nil {
			o.logger.Warn("发布周期汇总失败", zap.Error(err))
		}
	}
}
