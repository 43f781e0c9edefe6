package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"StockPulse/pkg/model"
)

var errNotSent = errors.New("推送未成功，不记录")

// RecordWriter 通知记录写入
type RecordWriter interface {
	CreateNotification(ctx context.Context, record *model.NotificationRecord) error
}

// Recorder 为成功发送的推送写一条通知记录
type Recorder struct {
	store   RecordWriter
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewRecorder(store RecordWriter, timeout time.Duration, logger *zap.Logger, options ...Option) *Recorder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Recorder{store: store, timeout: timeout, logger: logger, now: applyOptions(options).now}
}

// Record 写入失败只记日志，不重试
func (r *Recorder) Record(ctx context.Context, a Attempt) error {
	if a.Outcome != model.OutcomeSent {
		return errNotSent
	}

	createdAt := a.SentAt
	if createdAt.IsZero() {
		createdAt = r.now().UTC()
	}
	record := &model.NotificationRecord{
		UserID:           a.Candidate.UserID,
		Symbol:           a.Candidate.Symbol,
		Message:          a.Message.Body,
		Price:            a.Candidate.Quote.Price,
		PercentageChange: a.Candidate.Quote.ChangePercent,
		Threshold:        a.Candidate.Threshold,
		DeliveryID:       a.DeliveryID,
		CreatedAt:        createdAt,
	}

	// 推送已经送达，记录必须尽量写入
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.store.CreateNotification(writeCtx, record); err != nil {
		r.logger.Error("通知记录写入失败，需人工对账",
			zap.String("user_id", record.UserID),
			zap.String("symbol", record.Symbol),
			zap.String("delivery_id", record.DeliveryID),
			zap.Error(err))
		return fmt.Errorf("写入通知记录失败: %w", err)
	}
	return nil
}
