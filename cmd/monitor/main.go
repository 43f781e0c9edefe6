package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"StockPulse/pkg/config"
	"StockPulse/pkg/logger"
	"StockPulse/pkg/messaging"
	"StockPulse/pkg/model"
	"StockPulse/pkg/monitor"
)

func main() {
	cfg, err := config.LoadConfig(config.GetDefaultConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.Log.Level)
	defer logger.Sync(log)
	log.Info("启动监控服务...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mon := monitor.NewMonitor(func(component, status, message string) {
		log.Warn("告警: 组件状态变化",
			zap.String("component", component),
			zap.String("status", status),
			zap.String("message", message))
	})
	mon.RegisterComponent("alerter-service")
	mon.RegisterComponent(monitor.ComponentPipeline)

	// 定期检查提醒服务
	mon.StartChecking(ctx, "alerter-service", fmt.Sprintf("http://localhost:%s/health", cfg.API.Port), 30*time.Second)

	// 订阅周期汇总
	natsClient, err := messaging.NewNATSClient(cfg.NATS.URL, log.Named("nats"))
	if err != nil {
		log.Fatal("连接NATS失败", zap.Error(err))
	}
	defer natsClient.Close()

	err = natsClient.Subscribe(messaging.CyclesStream, "cycle-monitor", messaging.SubjectCycleCompleted, func(data []byte) error {
		var summary model.CycleSummary
		if err := json.Unmarshal(data, &summary); err != nil {
			return fmt.Errorf("解析周期汇总失败: %w", err)
		}
		mon.RecordCycle(&summary)
		log.Info("收到周期汇总",
			zap.String("status", string(summary.Status)),
			zap.Int("sent", summary.AlertsSent),
			zap.Int("failed_chunks", summary.FailedChunks))
		return nil
	})
	if err != nil {
		log.Fatal("订阅周期汇总失败", zap.Error(err))
	}

	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     mon.Overall(),
			"components": mon.GetAllStatus(),
		})
	})

	port := os.Getenv("MONITOR_PORT")
	if port == "" {
		port = "8081" // 监控服务端口
	}
	srv := &http.Server{Addr: ":" + port, Handler: router}
	go func() {
		log.Info("监控服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("启动HTTP服务器失败", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("关闭HTTP服务失败", zap.Error(err))
	}
}
