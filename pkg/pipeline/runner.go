package pipeline

import (
	"context"
	"errors"
	"sync"

	"StockPulse/pkg/model"
)

// ErrCycleRunning 已有周期在运行
var ErrCycleRunning = errors.New("已有监控周期在运行")

// Runner 保证同一进程内不会重叠执行，并保存最近一次汇总
type Runner struct {
	orch *Orchestrator

	running sync.Mutex
	mu      sync.RWMutex
	last    *model.CycleSummary
}

func NewRunner(orch *Orchestrator) *Runner {
	return &Runner{orch: orch}
}

// Run 执行一次周期，已有周期在运行时返回 ErrCycleRunning
func (r *Runner) Run(ctx context.Context) (*model.CycleSummary, error) {
	if !r.running.TryLock() {
		return nil, ErrCycleRunning
	}
	defer r.running.Unlock()

	summary := r.orch.Run(ctx)

	r.mu.Lock()
	r.last = summary
	r.mu.Unlock()
	return summary, nil
}

// Last 最近一次汇总，尚未运行过时返回 nil
func (r *Runner) Last() *model.CycleSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return nil
	}
	copied := *r.last
	return &copied
}

// State 编排器当前状态
func (r *Runner) State() model.CycleState {
	return r.orch.State()
}
