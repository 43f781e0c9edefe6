package notifier

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMSender firebase messaging 客户端的发送能力
type FCMSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMPusher 通过 Firebase Cloud Messaging 推送到 user_<id> 主题
type FCMPusher struct {
	client FCMSender
}

// NewFCMPusher 使用服务账号文件初始化
func NewFCMPusher(ctx context.Context, credentialsFile string) (*FCMPusher, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("初始化Firebase失败: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取Firebase消息客户端失败: %w", err)
	}
	return NewFCMPusherWithClient(client), nil
}

// NewFCMPusherWithClient 使用已有客户端
func NewFCMPusherWithClient(client FCMSender) *FCMPusher {
	return &FCMPusher{client: client}
}

// Topic 用户对应的推送主题
func Topic(userID string) string {
	return "user_" + userID
}

func (p *FCMPusher) Send(ctx context.Context, msg PushMessage) (*PushResult, error) {
	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data:  msg.Data,
		Topic: Topic(msg.UserID),
	}

	id, err := p.client.Send(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPushRejected, err)
	}
	return &PushResult{ID: id, Recipients: 1}, nil
}
