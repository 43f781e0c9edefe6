// verify 使用内存数据和日志推送演练一次监控周期，只会真实调用行情服务
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"StockPulse/pkg/collector"
	"StockPulse/pkg/config"
	"StockPulse/pkg/logger"
	"StockPulse/pkg/notifier"
	"StockPulse/pkg/pipeline"
	"StockPulse/pkg/repository"
)

func main() {
	favorites := flag.String("favorites", "demo:AAPL,demo:MSFT,demo:TSLA", "user:SYMBOL 列表，逗号分隔")
	thresholds := flag.String("thresholds", "", "user:阈值 列表，逗号分隔")
	flag.Parse()

	cfg, err := config.LoadConfig(config.GetDefaultConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	// 演练不需要真实推送凭证
	if cfg.Push.AppID == "" {
		cfg.Push.AppID = "dry-run"
	}
	if cfg.Push.APIKey == "" {
		cfg.Push.APIKey = "dry-run"
	}
	cfg.Push.Provider = "onesignal"

	log := logger.New(cfg.App.Env, cfg.Log.Level)
	defer logger.Sync(log)
	log.Info("开始演练监控周期...")

	repo := repository.NewRepository()
	for _, pair := range splitPairs(*favorites) {
		repo.AddFavorite(pair[0], pair[1])
	}
	for _, pair := range splitPairs(*thresholds) {
		t, err := strconv.Atoi(pair[1])
		if err != nil {
			log.Fatal("阈值格式错误", zap.String("value", pair[1]))
		}
		repo.SetThreshold(pair[0], t)
	}

	orch := pipeline.New(cfg, pipeline.Deps{
		Store:  repo,
		Quotes: collector.NewQuoteAPIClient(cfg.QuoteProvider.APIKey, cfg.QuoteProvider.BaseURL),
		Pusher: notifier.NewLogPusher(log.Named("dry-run")),
	}, log.Named("pipeline"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	summary := orch.Run(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(summary)

	log.Info("演练完成", zap.Int("records", len(repo.Notifications())))
}

func splitPairs(s string) [][2]string {
	var out [][2]string
	for _, item := range strings.Split(s, ",") {
		parts := strings.SplitN(strings.TrimSpace(item), ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		out = append(out, [2]string{parts[0], parts[1]})
	}
	return out
}
