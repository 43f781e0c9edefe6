package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient 可替换的HTTP客户端
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// OneSignalPusher 通过 OneSignal 按 user_id 标签推送
type OneSignalPusher struct {
	appID   string
	apiKey  string
	baseURL string
	client  HTTPClient
}

// NewOneSignalPusher 创建 OneSignal 推送客户端
func NewOneSignalPusher(appID, apiKey, baseURL string, client HTTPClient) *OneSignalPusher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &OneSignalPusher{
		appID:   appID,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type oneSignalFilter struct {
	Field    string `json:"field"`
	Key      string `json:"key"`
	Relation string `json:"relation"`
	Value    string `json:"value"`
}

type oneSignalRequest struct {
	AppID    string            `json:"app_id"`
	Filters  []oneSignalFilter `json:"filters"`
	Headings map[string]string `json:"headings"`
	Contents map[string]string `json:"contents"`
	Data     map[string]string `json:"data,omitempty"`
}

type oneSignalResponse struct {
	ID         string          `json:"id"`
	Recipients int             `json:"recipients"`
	Errors     json.RawMessage `json:"errors"`
}

// Send 发送推送，非2xx或响应中带 errors 都视为失败
func (p *OneSignalPusher) Send(ctx context.Context, msg PushMessage) (*PushResult, error) {
	payload := oneSignalRequest{
		AppID: p.appID,
		Filters: []oneSignalFilter{{
			Field:    "tag",
			Key:      "user_id",
			Relation: "=",
			Value:    msg.UserID,
		}},
		Headings: map[string]string{"en": msg.Title},
		Contents: map[string]string{"en": msg.Body},
		Data:     msg.Data,
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化推送请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/notifications", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Basic "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("执行推送请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("读取推送响应失败: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: 状态码 %d: %s", ErrPushRejected, resp.StatusCode, truncate(body, 256))
	}

	var out oneSignalResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("解析推送响应失败: %w", err)
	}
	if hasErrors(out.Errors) {
		return nil, fmt.Errorf("%w: %s", ErrPushRejected, string(out.Errors))
	}

	return &PushResult{ID: out.ID, Recipients: out.Recipients}, nil
}

// hasErrors errors 字段可能是数组也可能是对象
func hasErrors(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	switch string(trimmed) {
	case "null", "[]", "{}":
		return false
	}
	return true
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
