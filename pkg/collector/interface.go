package collector

import (
	"context"

	"StockPulse/pkg/model"
)

// QuoteFetcher 行情数据获取接口，一次请求查询一批股票
type QuoteFetcher interface {
	FetchQuotes(ctx context.Context, symbols []string) ([]model.Quote, error)
}
