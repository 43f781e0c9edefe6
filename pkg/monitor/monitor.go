package monitor

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"StockPulse/pkg/model"
)

const (
	StatusUnknown   = "unknown"
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// 流水线依赖的组件名
const (
	ComponentPipeline      = "pipeline"
	ComponentQuoteProvider = "quote-provider"
	ComponentPushProvider  = "push-provider"
	ComponentDatabase      = "database"
	ComponentNATS          = "nats"
)

// HealthStatus 健康状态
type HealthStatus struct {
	Component   string    `json:"component"`
	Status      string    `json:"status"`
	LastChecked time.Time `json:"last_checked"`
	Message     string    `json:"message,omitempty"`
}

// Monitor 组件健康登记表
type Monitor struct {
	components map[string]*HealthStatus
	mutex      sync.RWMutex
	alertFunc  func(component, status, message string)
	client     *http.Client
}

// NewMonitor 创建新的监控系统，状态变为不健康时调用 alertFunc
func NewMonitor(alertFunc func(component, status, message string)) *Monitor {
	return &Monitor{
		components: make(map[string]*HealthStatus),
		alertFunc:  alertFunc,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// RegisterComponent 注册组件
func (m *Monitor) RegisterComponent(component string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.components[component]; exists {
		return
	}
	m.components[component] = &HealthStatus{
		Component:   component,
		Status:      StatusUnknown,
		LastChecked: time.Now(),
	}
}

// UpdateStatus 更新组件状态
func (m *Monitor) UpdateStatus(component, status, message string) {
	m.mutex.Lock()
	entry, exists := m.components[component]
	if !exists {
		entry = &HealthStatus{Component: component}
		m.components[component] = entry
	}
	oldStatus := entry.Status
	entry.Status = status
	entry.LastChecked = time.Now()
	entry.Message = message
	m.mutex.Unlock()

	if oldStatus != status && status != StatusHealthy && m.alertFunc != nil {
		m.alertFunc(component, status, message)
	}
}

// RecordCycle 根据周期汇总更新流水线及外部依赖的状态
func (m *Monitor) RecordCycle(s *model.CycleSummary) {
	if s == nil {
		return
	}

	switch s.Status {
	case model.StatusCompleted:
		m.UpdateStatus(ComponentPipeline, StatusHealthy, "")
	case model.StatusCancelled:
		m.UpdateStatus(ComponentPipeline, StatusDegraded, "周期被取消")
	default:
		m.UpdateStatus(ComponentPipeline, StatusUnhealthy, s.Error)
	}

	if s.SymbolsQueried > 0 {
		switch {
		case s.QuotesRetrieved == 0:
			m.UpdateStatus(ComponentQuoteProvider, StatusUnhealthy, "所有行情批次失败")
		case s.FailedChunks > 0:
			m.UpdateStatus(ComponentQuoteProvider, StatusDegraded, fmt.Sprintf("%d 个行情批次失败", s.FailedChunks))
		default:
			m.UpdateStatus(ComponentQuoteProvider, StatusHealthy, "")
		}
	}

	attempted := s.AlertsSent + s.DispatchFailures
	if attempted > 0 {
		switch {
		case s.AlertsSent == 0:
			m.UpdateStatus(ComponentPushProvider, StatusUnhealthy, "所有推送失败")
		case s.DispatchFailures > 0:
			m.UpdateStatus(ComponentPushProvider, StatusDegraded, fmt.Sprintf("%d 条推送失败", s.DispatchFailures))
		default:
			m.UpdateStatus(ComponentPushProvider, StatusHealthy, "")
		}
	}

	if s.RecordFailures > 0 {
		m.UpdateStatus(ComponentDatabase, StatusDegraded, fmt.Sprintf("%d 条通知记录写入失败", s.RecordFailures))
	}
}

// RecordConnection 根据连接状态更新组件，断开视为降级
func (m *Monitor) RecordConnection(component string, connected bool) {
	if connected {
		m.UpdateStatus(component, StatusHealthy, "")
		return
	}
	m.UpdateStatus(component, StatusDegraded, "连接已断开")
}

// GetStatus 获取组件状态
func (m *Monitor) GetStatus(component string) *HealthStatus {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if status, exists := m.components[component]; exists {
		copied := *status
		return &copied
	}
	return nil
}

// GetAllStatus 获取所有组件状态，按组件名排序
func (m *Monitor) GetAllStatus() []*HealthStatus {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	statuses := make([]*HealthStatus, 0, len(m.components))
	for _, status := range m.components {
		copied := *status
		statuses = append(statuses, &copied)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Component < statuses[j].Component })
	return statuses
}

// Overall 汇总状态：任一组件不健康则不健康
func (m *Monitor) Overall() string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	overall := StatusHealthy
	for _, s := range m.components {
		switch s.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}

// CheckHTTPEndpoint 检查HTTP端点健康状态
func (m *Monitor) CheckHTTPEndpoint(ctx context.Context, component, url string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		m.UpdateStatus(component, StatusUnhealthy, fmt.Sprintf("创建请求失败: %v", err))
		return
	}

	resp, err := m.client.Do(req)
	if err != nil {
		m.UpdateStatus(component, StatusUnhealthy, fmt.Sprintf("HTTP请求失败: %v", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		m.UpdateStatus(component, StatusDegraded, fmt.Sprintf("HTTP状态码非200: %d", resp.StatusCode))
		return
	}

	m.UpdateStatus(component, StatusHealthy, "")
}

// StartChecking 定期检查，ctx 取消后停止
func (m *Monitor) StartChecking(ctx context.Context, component, url string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CheckHTTPEndpoint(ctx, component, url)
			}
		}
	}()
}
