package collector

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"StockPulse/pkg/model"
)

// BatchOptions 分批请求参数
type BatchOptions struct {
	BatchSize      int
	MaxConcurrency int
	Timeout        time.Duration // 单批超时
}

// BatchResult 一次分批获取的结果
type BatchResult struct {
	Quotes        map[string]model.Quote
	Chunks        int
	FailedChunks  int
	FailedSymbols []string // 没有拿到行情的股票
}

// BatchFetcher 分批并发获取行情，单批失败只丢弃该批
type BatchFetcher struct {
	fetcher QuoteFetcher
	opts    BatchOptions
	logger  *zap.Logger

	// OnChunk 每批结束时回调，用于指标统计
	OnChunk func(ok bool)
}

// NewBatchFetcher 创建分批获取器
func NewBatchFetcher(fetcher QuoteFetcher, opts BatchOptions, logger *zap.Logger) *BatchFetcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 12 * time.Second
	}
	return &BatchFetcher{
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
	}
}

// Fetch 获取所有股票的行情
func (b *BatchFetcher) Fetch(ctx context.Context, symbols []string) *BatchResult {
	uniq := uniqueStrings(symbols)
	result := &BatchResult{Quotes: make(map[string]model.Quote, len(uniq))}
	if len(uniq) == 0 {
		return result
	}

	chunks := chunkStrings(uniq, b.opts.BatchSize)
	result.Chunks = len(chunks)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(b.opts.MaxConcurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			quotes, err := b.fetchChunk(ctx, chunk)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.FailedChunks++
				b.logger.Warn("行情批次获取失败",
					zap.Int("chunk", i),
					zap.Strings("symbols", chunk),
					zap.Error(err))
				if b.OnChunk != nil {
					b.OnChunk(false)
				}
				return nil
			}

			requested := make(map[string]struct{}, len(chunk))
			for _, s := range chunk {
				requested[s] = struct{}{}
			}
			for _, q := range quotes {
				if _, ok := requested[q.Symbol]; ok {
					result.Quotes[q.Symbol] = q
				}
			}
			if b.OnChunk != nil {
				b.OnChunk(true)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, s := range uniq {
		if _, ok := result.Quotes[s]; !ok {
			result.FailedSymbols = append(result.FailedSymbols, s)
		}
	}

	b.logger.Info("行情获取完成",
		zap.Int("symbols", len(uniq)),
		zap.Int("quotes", len(result.Quotes)),
		zap.Int("chunks", result.Chunks),
		zap.Int("failed_chunks", result.FailedChunks))

	return result
}

func (b *BatchFetcher) fetchChunk(ctx context.Context, chunk []string) ([]model.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()
	return b.fetcher.FetchQuotes(ctx, chunk)
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func chunkStrings(in []string, size int) [][]string {
	if size <= 0 || len(in) == 0 {
		return [][]string{in}
	}
	out := make([][]string, 0, (len(in)+size-1)/size)
	for i := 0; i < len(in); i += size {
		j := i + size
		if j > len(in) {
			j = len(in)
		}
		out = append(out, in[i:j])
	}
	return out
}
