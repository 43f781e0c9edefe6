package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"StockPulse/pkg/model"
	"StockPulse/pkg/monitor"
	"StockPulse/pkg/pipeline"
)

// CycleRunner 监控周期执行入口
type CycleRunner interface {
	Run(ctx context.Context) (*model.CycleSummary, error)
	Last() *model.CycleSummary
}

// NotificationLister 查询用户的通知记录
type NotificationLister interface {
	RecentNotifications(ctx context.Context, userID string, limit int) ([]model.NotificationRecord, error)
}

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

// Handlers API处理程序
type Handlers struct {
	runner        CycleRunner
	notifications NotificationLister
	monitor       *monitor.Monitor
	ready         func(ctx context.Context) error
}

// NewHandlers 创建新的API处理程序，ready 为空时总是就绪
func NewHandlers(runner CycleRunner, notifications NotificationLister, mon *monitor.Monitor, ready func(ctx context.Context) error) *Handlers {
	return &Handlers{
		runner:        runner,
		notifications: notifications,
		monitor:       mon,
		ready:         ready,
	}
}

// HealthCheck 健康检查处理程序
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ReadinessCheck 就绪检查处理程序
func (h *Handlers) ReadinessCheck(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// ComponentStatus 各组件健康状态
func (h *Handlers) ComponentStatus(c *gin.Context) {
	if h.monitor == nil {
		c.JSON(http.StatusOK, gin.H{"status": monitor.StatusUnknown, "components": []any{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     h.monitor.Overall(),
		"components": h.monitor.GetAllStatus(),
	})
}

// RunCycle 同步执行一次监控周期
func (h *Handlers) RunCycle(c *gin.Context) {
	summary, err := h.runner.Run(c.Request.Context())
	if errors.Is(err, pipeline.ErrCycleRunning) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "执行监控周期失败: " + err.Error(),
		})
		return
	}

	if !summary.Success {
		c.JSON(http.StatusInternalServerError, summary)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// LastCycle 最近一次周期汇总
func (h *Handlers) LastCycle(c *gin.Context) {
	summary := h.runner.Last()
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "尚未执行过监控周期",
		})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// UserNotifications 用户最近的通知记录，按时间倒序
func (h *Handlers) UserNotifications(c *gin.Context) {
	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit 必须是正整数"})
			return
		}
		limit = min(n, maxNotificationLimit)
	}

	records, err := h.notifications.RecentNotifications(c.Request.Context(), c.Param("user_id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "查询通知记录失败: " + err.Error(),
		})
		return
	}
	if records == nil {
		records = []model.NotificationRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":       c.Param("user_id"),
		"notifications": records,
	})
}
