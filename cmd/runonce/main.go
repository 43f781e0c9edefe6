// runonce 执行一次监控周期并输出JSON汇总，供外部调度器调用
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"StockPulse/pkg/collector"
	"StockPulse/pkg/config"
	"StockPulse/pkg/database"
	"StockPulse/pkg/logger"
	"StockPulse/pkg/messaging"
	"StockPulse/pkg/notifier"
	"StockPulse/pkg/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadConfig(config.GetDefaultConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		return 1
	}

	log := logger.New(cfg.App.Env, cfg.Log.Level)
	defer logger.Sync(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := database.NewPostgresDB(cfg, log.Named("database"))
	if err != nil {
		log.Error("连接数据库失败", zap.Error(err))
		return 1
	}
	defer pg.Close()

	pusher, err := notifier.NewPusher(ctx, cfg)
	if err != nil {
		log.Error("初始化推送服务失败", zap.Error(err))
		return 1
	}

	deps := pipeline.Deps{
		Store:  database.NewStore(pg),
		Quotes: collector.NewQuoteAPIClient(cfg.QuoteProvider.APIKey, cfg.QuoteProvider.BaseURL),
		Pusher: pusher,
	}
	if cfg.NATS.Enabled {
		if natsClient, err := messaging.NewNATSClient(cfg.NATS.URL, log.Named("nats")); err != nil {
			log.Warn("连接NATS失败，事件发布已禁用", zap.Error(err))
		} else {
			defer natsClient.Close()
			deps.Publisher = natsClient
		}
	}

	summary := pipeline.New(cfg, deps, log.Named("pipeline")).Run(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(summary)

	if !summary.Success {
		return 2
	}
	return 0
}
