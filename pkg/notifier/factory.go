package notifier

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"StockPulse/pkg/config"
)

// NewPusher 根据配置选择推送服务
func NewPusher(ctx context.Context, cfg *config.Config) (Pusher, error) {
	switch cfg.Push.Provider {
	case "fcm":
		return NewFCMPusher(ctx, cfg.Push.CredentialsFile)
	case "onesignal", "":
		return NewOneSignalPusher(cfg.Push.AppID, cfg.Push.APIKey, cfg.Push.BaseURL, &http.Client{Timeout: cfg.Push.Timeout}), nil
	default:
		return nil, fmt.Errorf("不支持的推送服务: %s", cfg.Push.Provider)
	}
}

// LogPusher 只写日志不真正推送，用于演练
type LogPusher struct {
	logger *zap.Logger
}

func NewLogPusher(logger *zap.Logger) *LogPusher {
	return &LogPusher{logger: logger}
}

func (p *LogPusher) Send(ctx context.Context, msg PushMessage) (*PushResult, error) {
	id := "dry-run-" + uuid.New().String()
	p.logger.Info("演练推送",
		zap.String("user_id", msg.UserID),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
		zap.String("id", id))
	return &PushResult{ID: id, Recipients: 1}, nil
}
