package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"StockPulse/pkg/api"
	"StockPulse/pkg/collector"
	"StockPulse/pkg/config"
	"StockPulse/pkg/database"
	"StockPulse/pkg/logger"
	"StockPulse/pkg/messaging"
	"StockPulse/pkg/monitor"
	"StockPulse/pkg/notifier"
	"StockPulse/pkg/pipeline"
	"StockPulse/pkg/scheduler"
)

func main() {
	cfg, err := config.LoadConfig(config.GetDefaultConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.Log.Level)
	defer logger.Sync(log)
	log.Info("启动价格提醒服务...", zap.String("env", cfg.App.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 数据库
	pg, err := database.NewPostgresDB(cfg, log.Named("database"))
	if err != nil {
		log.Fatal("连接数据库失败", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.AutoMigrate(); err != nil {
		log.Fatal("同步表结构失败", zap.Error(err))
	}

	// 监控
	mon := monitor.NewMonitor(func(component, status, message string) {
		log.Warn("组件状态异常",
			zap.String("component", component),
			zap.String("status", status),
			zap.String("message", message))
	})
	for _, c := range []string{
		monitor.ComponentPipeline,
		monitor.ComponentQuoteProvider,
		monitor.ComponentPushProvider,
		monitor.ComponentDatabase,
		monitor.ComponentNATS,
	} {
		mon.RegisterComponent(c)
	}
	mon.UpdateStatus(monitor.ComponentDatabase, monitor.StatusHealthy, "")

	// NATS 不可用时继续运行，只是不发布事件
	var (
		publisher  pipeline.EventPublisher
		natsClient *messaging.NATSClient
	)
	if cfg.NATS.Enabled {
		natsClient, err = messaging.NewNATSClient(cfg.NATS.URL, log.Named("nats"))
		if err != nil {
			log.Warn("连接NATS失败，事件发布已禁用", zap.Error(err))
			mon.UpdateStatus(monitor.ComponentNATS, monitor.StatusDegraded, err.Error())
			natsClient = nil
		} else {
			defer natsClient.Close()
			publisher = natsClient
			mon.UpdateStatus(monitor.ComponentNATS, monitor.StatusHealthy, "")
		}
	}

	pusher, err := notifier.NewPusher(ctx, cfg)
	if err != nil {
		log.Fatal("初始化推送服务失败", zap.Error(err))
	}

	store := database.NewStore(pg)
	orch := pipeline.New(cfg, pipeline.Deps{
		Store:     store,
		Quotes:    collector.NewQuoteAPIClient(cfg.QuoteProvider.APIKey, cfg.QuoteProvider.BaseURL),
		Pusher:    pusher,
		Publisher: publisher,
		Monitor:   mon,
	}, log.Named("pipeline"))
	runner := pipeline.NewRunner(orch)

	// 定时任务
	sched := scheduler.NewScheduler(runner, 10*time.Minute, log.Named("scheduler"))
	if err := sched.Schedule(cfg.Alerting.Schedule); err != nil {
		log.Fatal("注册定时任务失败", zap.Error(err))
	}
	sched.Start()
	if cfg.Alerting.RunAtStart {
		go sched.RunCycle()
	}

	// HTTP
	ready := func(ctx context.Context) error {
		if err := pg.Ping(ctx); err != nil {
			mon.UpdateStatus(monitor.ComponentDatabase, monitor.StatusUnhealthy, err.Error())
			return err
		}
		mon.UpdateStatus(monitor.ComponentDatabase, monitor.StatusHealthy, "")
		// 事件总线断开不影响就绪
		if natsClient != nil {
			mon.RecordConnection(monitor.ComponentNATS, natsClient.IsConnected())
		}
		return nil
	}
	server := api.NewServer(cfg, log)
	server.SetupRoutes(api.NewHandlers(runner, store, mon, ready))
	server.Start()

	<-ctx.Done()
	log.Info("正在关闭服务...")

	if err := server.Shutdown(5 * time.Second); err != nil {
		log.Error("关闭HTTP服务失败", zap.Error(err))
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sched.Stop(stopCtx)

	log.Info("服务已关闭")
}
