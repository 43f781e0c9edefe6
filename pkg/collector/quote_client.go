package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"StockPulse/pkg/model"
)

// ErrProvider 行情服务返回了错误内容
var ErrProvider = errors.New("行情服务返回错误")

// HTTPClient 可替换的HTTP客户端
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// QuoteAPIClient 批量行情API客户端
type QuoteAPIClient struct {
	apiKey  string
	baseURL string
	client  HTTPClient
}

// QuoteAPIClientOption 客户端配置项
type QuoteAPIClientOption func(*QuoteAPIClient)

// WithHTTPClient 替换HTTP客户端
func WithHTTPClient(client HTTPClient) QuoteAPIClientOption {
	return func(c *QuoteAPIClient) {
		c.client = client
	}
}

// WithBaseURL 替换API地址
func WithBaseURL(baseURL string) QuoteAPIClientOption {
	return func(c *QuoteAPIClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewQuoteAPIClient 创建新的行情客户端
func NewQuoteAPIClient(apiKey, baseURL string, options ...QuoteAPIClientOption) *QuoteAPIClient {
	c := &QuoteAPIClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// quoteItem 行情服务返回的单条数据
type quoteItem struct {
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	Change            float64 `json:"change"`
	ChangesPercentage float64 `json:"changesPercentage"`
	Timestamp         int64   `json:"timestamp"`
}

// errorBody 行情服务的错误响应
type errorBody struct {
	Success      *bool  `json:"success"`
	ErrorMessage string `json:"Error Message"`
	Message      string `json:"message"`
}

// FetchQuotes 请求一批股票的实时行情
func (c *QuoteAPIClient) FetchQuotes(ctx context.Context, symbols []string) ([]model.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	escaped := make([]string, len(symbols))
	for i, s := range symbols {
		escaped[i] = url.PathEscape(s)
	}
	endpoint := fmt.Sprintf("%s/quote/%s?apikey=%s",
		c.baseURL, strings.Join(escaped, ","), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("执行HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API返回非200状态码: %d", resp.StatusCode)
	}

	return decodeQuotes(body)
}

// decodeQuotes 只接受JSON数组，对象形式的响应视为错误
func decodeQuotes(body []byte) ([]model.Quote, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		var e errorBody
		if err := json.Unmarshal(trimmed, &e); err == nil {
			msg := e.ErrorMessage
			if msg == "" {
				msg = e.Message
			}
			if msg != "" || (e.Success != nil && !*e.Success) {
				return nil, fmt.Errorf("%w: %s", ErrProvider, msg)
			}
		}
		return nil, fmt.Errorf("%w: 响应不是数组", ErrProvider)
	}

	var items []quoteItem
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	quotes := make([]model.Quote, 0, len(items))
	for _, item := range items {
		ts := time.Now().UTC()
		if item.Timestamp > 0 {
			ts = time.Unix(item.Timestamp, 0).UTC()
		}
		quotes = append(quotes, model.Quote{
			Symbol:        strings.ToUpper(item.Symbol),
			Name:          item.Name,
			Price:         item.Price,
			Change:        item.Change,
			ChangePercent: item.ChangesPercentage,
			Timestamp:     ts,
		})
	}
	return quotes, nil
}
