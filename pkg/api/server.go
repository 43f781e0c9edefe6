package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"StockPulse/pkg/config"
)

// Server API服务器
type Server struct {
	router *gin.Engine
	srv    *http.Server
	logger *zap.Logger
}

// NewServer 创建新的API服务器
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger.Named("http")))

	srv := &http.Server{
		Addr:         ":" + cfg.API.Port,
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	return &Server{
		router: router,
		srv:    srv,
		logger: logger,
	}
}

// Router 供测试直接调用
func (s *Server) Router() *gin.Engine {
	return s.router
}

// SetupRoutes 设置路由
func (s *Server) SetupRoutes(handlers *Handlers) {
	s.router.GET("/health", handlers.HealthCheck)
	s.router.GET("/ready", handlers.ReadinessCheck)
	s.router.GET("/status", handlers.ComponentStatus)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/cycles/run", handlers.RunCycle)
		v1.GET("/cycles/last", handlers.LastCycle)
		v1.GET("/users/:user_id/notifications", handlers.UserNotifications)
	}
}

// Start 在后台启动服务器
func (s *Server) Start() {
	go func() {
		s.logger.Info("API服务器启动", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Fatal("启动服务器失败", zap.Error(err))
		}
	}()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务器关闭失败: %w", err)
	}
	s.logger.Info("服务器已关闭")
	return nil
}

// requestLogger 使用 zap 记录请求
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
