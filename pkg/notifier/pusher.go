package notifier

import (
	"context"
	"errors"
)

// ErrPushRejected 推送服务明确拒绝了请求
var ErrPushRejected = errors.New("推送服务拒绝")

// PushMessage 发给单个用户的推送
type PushMessage struct {
	UserID string
	Title  string
	Body   string
	Data   map[string]string
}

// PushResult 推送服务的确认
type PushResult struct {
	ID         string
	Recipients int
}

// Pusher 推送服务
//
//go:generate mockgen -package=notifier -destination=mock_pusher_test.go -source=pusher.go Pusher
type Pusher interface {
	Send(ctx context.Context, msg PushMessage) (*PushResult, error)
}
