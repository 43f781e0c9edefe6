package notifier

import (
	"context"
	"time"

	"go.uber.org/zap"

	"StockPulse/pkg/model"
)

// Reserver 配额预留
type Reserver interface {
	TryReserve(userID string) bool
}

// Attempt 一次推送尝试的结果
type Attempt struct {
	Candidate  model.CandidateAlert
	Outcome    model.DispatchOutcome
	Message    PushMessage
	DeliveryID string
	SentAt     time.Time
	Err        error
}

// Dispatcher 预留配额后发送推送
type Dispatcher struct {
	pusher  Pusher
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// Option 分发器和记录器共用的可选配置
type Option func(*clockOption)

type clockOption struct {
	now func() time.Time
}

// WithClock 替换时钟，发送时间和记录时间与配额窗口使用同一时钟
func WithClock(now func() time.Time) Option {
	return func(o *clockOption) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(options []Option) clockOption {
	o := clockOption{now: time.Now}
	for _, option := range options {
		option(&o)
	}
	return o
}

// NewDispatcher 创建推送分发器
func NewDispatcher(pusher Pusher, timeout time.Duration, logger *zap.Logger, options ...Option) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		pusher:  pusher,
		timeout: timeout,
		logger:  logger,
		now:     applyOptions(options).now,
	}
}

// Dispatch 处理单条候选提醒
// 配额不足时不调用推送服务；推送失败不归还配额
func (d *Dispatcher) Dispatch(ctx context.Context, quota Reserver, c model.CandidateAlert) Attempt {
	attempt := Attempt{Candidate: c}

	if !quota.TryReserve(c.UserID) {
		attempt.Outcome = model.OutcomeSuppressed
		d.logger.Debug("当日配额已用完",
			zap.String("user_id", c.UserID),
			zap.String("symbol", c.Symbol))
		return attempt
	}

	attempt.Message = BuildMessage(c, d.now())

	// 已开始的推送不受周期取消影响，只受自身超时限制
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	res, err := d.pusher.Send(sendCtx, attempt.Message)
	if err != nil {
		attempt.Outcome = model.OutcomeFailed
		attempt.Err = err
		d.logger.Warn("推送失败",
			zap.String("user_id", c.UserID),
			zap.String("symbol", c.Symbol),
			zap.Error(err))
		return attempt
	}

	attempt.Outcome = model.OutcomeSent
	attempt.SentAt = d.now().UTC()
	if res != nil {
		attempt.DeliveryID = res.ID
	}
	d.logger.Info("推送成功",
		zap.String("user_id", c.UserID),
		zap.String("symbol", c.Symbol),
		zap.String("delivery_id", attempt.DeliveryID))
	return attempt
}
