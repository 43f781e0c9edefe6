// pkg/messaging/nats.go
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"StockPulse/pkg/model"
)

const (
	AlertsStream = "ALERTS_STREAM"
	CyclesStream = "CYCLES_STREAM"

	SubjectPriceDrop      = "alerts.price_drop"
	SubjectCycleCompleted = "cycles.completed"
)

// NATSClient NATS JetStream客户端
type NATSClient struct {
	conn      *nats.Conn
	jetStream jetstream.JetStream
	natsURL   string
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	consumers map[string]jetstream.Consumer
	wg        sync.WaitGroup
	mu        sync.RWMutex // 保护consumers
}

// MessageHandler 通用消息处理函数类型
type MessageHandler func(data []byte) error

// NewNATSClient 创建新的NATS客户端
func NewNATSClient(natsURL string, logger *zap.Logger) (*NATSClient, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("stockpulse"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // 无限重连
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS连接断开", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS重新连接成功")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("连接NATS失败: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("创建JetStream失败: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	client := &NATSClient{
		conn:      nc,
		jetStream: js,
		natsURL:   natsURL,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		consumers: make(map[string]jetstream.Consumer),
	}

	client.setupStreams()

	return client, nil
}

// StreamConfigs 流水线使用的Streams
func StreamConfigs() []jetstream.StreamConfig {
	return []jetstream.StreamConfig{
		{
			Name:        AlertsStream,
			Subjects:    []string{"alerts.*"},
			Description: "已发送的价格提醒",
			Retention:   jetstream.LimitsPolicy,
			MaxMsgs:     50000,
			MaxBytes:    50 * 1024 * 1024,   // 50MB
			MaxAge:      7 * 24 * time.Hour, // 保留7天
		},
		{
			Name:        CyclesStream,
			Subjects:    []string{"cycles.*"},
			Description: "监控周期汇总",
			Retention:   jetstream.LimitsPolicy,
			MaxMsgs:     10000,
			MaxBytes:    10 * 1024 * 1024, // 10MB
			MaxAge:      3 * 24 * time.Hour,
		},
	}
}

// setupStreams 创建失败只记录日志，发布时会再次报错
func (c *NATSClient) setupStreams() {
	for _, streamConfig := range StreamConfigs() {
		if _, err := c.jetStream.CreateOrUpdateStream(c.ctx, streamConfig); err != nil {
			c.logger.Warn("创建/更新Stream失败", zap.String("stream", streamConfig.Name), zap.Error(err))
		} else {
			c.logger.Debug("Stream设置成功", zap.String("stream", streamConfig.Name))
		}
	}
}

// encodePayload 字节和字符串原样发送，其余按JSON序列化
func encodePayload(data interface{}) ([]byte, error) {
	switch v := data.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("序列化数据失败: %w", err)
		}
		return payload, nil
	}
}

// Publish 发布消息到指定主题
func (c *NATSClient) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := encodePayload(data)
	if err != nil {
		return err
	}

	if _, err := c.jetStream.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("发布消息到 %s 失败: %w", subject, err)
	}

	c.logger.Debug("发布消息", zap.String("subject", subject), zap.Int("bytes", len(payload)))
	return nil
}

// PublishAlert 发布已发送的提醒
func (c *NATSClient) PublishAlert(ctx context.Context, event model.AlertEvent) error {
	return c.Publish(ctx, SubjectPriceDrop, event)
}

// PublishCycleSummary 发布周期汇总
func (c *NATSClient) PublishCycleSummary(ctx context.Context, summary *model.CycleSummary) error {
	return c.Publish(ctx, SubjectCycleCompleted, summary)
}

// Subscribe 订阅指定主题的消息
func (c *NATSClient) Subscribe(streamName, consumerName, filterSubject string, handler MessageHandler) error {
	consumerConfig := jetstream.ConsumerConfig{
		Durable:       consumerName,
		Description:   fmt.Sprintf("%s 消费者", consumerName),
		FilterSubject: filterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := c.jetStream.CreateOrUpdateConsumer(c.ctx, streamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("创建消费者 %s 失败: %w", consumerName, err)
	}

	c.mu.Lock()
	c.consumers[consumerName] = consumer
	c.mu.Unlock()

	c.wg.Add(1)
	go c.consumeMessages(consumer, consumerName, handler)

	c.logger.Info("已订阅",
		zap.String("subject", filterSubject),
		zap.String("stream", streamName),
		zap.String("consumer", consumerName))
	return nil
}

// consumeMessages 消费消息的通用逻辑
func (c *NATSClient) consumeMessages(consumer jetstream.Consumer, consumerName string, handler MessageHandler) {
	defer c.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("消费者异常退出", zap.String("consumer", consumerName), zap.Any("panic", r))
		}
	}()

	iter, err := consumer.Messages(jetstream.PullMaxMessages(10))
	if err != nil {
		c.logger.Error("获取消息迭代器失败", zap.String("consumer", consumerName), zap.Error(err))
		return
	}
	// ctx 取消时 Stop 让阻塞中的 Next 返回
	go func() {
		<-c.ctx.Done()
		iter.Stop()
	}()

	for {
		msg, err := iter.Next()
		if err != nil {
			if errors.Is(err, jetstream.ErrMsgIteratorClosed) || c.ctx.Err() != nil {
				c.logger.Info("消费者收到停止信号", zap.String("consumer", consumerName))
				return
			}
			c.logger.Warn("获取消息失败", zap.String("consumer", consumerName), zap.Error(err))
			time.Sleep(1 * time.Second)
			continue
		}

		if err := handler(msg.Data()); err != nil {
			c.logger.Warn("处理消息失败", zap.String("consumer", consumerName), zap.Error(err))
			_ = msg.Nak()
		} else {
			_ = msg.Ack()
		}
	}
}

// Close 关闭连接
func (c *NATSClient) Close() error {
	c.logger.Info("正在关闭NATS连接...")

	c.cancel()
	c.wg.Wait()

	c.mu.Lock()
	c.consumers = make(map[string]jetstream.Consumer)
	c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}

// IsConnected 检查连接状态
func (c *NATSClient) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}
