package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"StockPulse/pkg/model"
	"StockPulse/pkg/pipeline"
)

// CycleRunner 执行一次监控周期
type CycleRunner interface {
	Run(ctx context.Context) (*model.CycleSummary, error)
}

// Scheduler 任务调度器
type Scheduler struct {
	cron    *cron.Cron
	runner  CycleRunner
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// NewScheduler 创建任务调度器，timeout 为单个周期的最长执行时间
func NewScheduler(runner CycleRunner, timeout time.Duration, logger *zap.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		runner:  runner,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
	}
}

// Schedule 按 cron 表达式注册监控周期
func (s *Scheduler) Schedule(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RunCycle); err != nil {
		return fmt.Errorf("注册定时任务失败: %w", err)
	}
	s.logger.Info("已注册监控周期", zap.String("schedule", spec))
	return nil
}

// Start 启动调度器
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度器，取消运行中的周期并等待其结束
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		s.logger.Warn("等待监控周期结束超时")
	}
}

// RunCycle 执行一次周期，已有周期在运行时跳过
func (s *Scheduler) RunCycle() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	summary, err := s.runner.Run(ctx)
	if errors.Is(err, pipeline.ErrCycleRunning) {
		s.logger.Info("上一个监控周期仍在运行，跳过")
		return
	}
	if err != nil {
		s.logger.Error("监控周期执行失败", zap.Error(err))
		return
	}
	s.logger.Debug("定时监控周期结束",
		zap.String("status", string(summary.Status)),
		zap.Int("sent", summary.AlertsSent))
}
