package ai

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"recipe-catalog/internal/infrastructure/config"
	"recipe-catalog/internal/pkg/common"
)

// ErrQueueFull 等待中的生成請求已達上限
var ErrQueueFull = errors.New("ai: generation queue is full")

// QueueStatus 隊列狀態
type QueueStatus struct {
	InFlight       int   `json:"in_flight"`
	Waiting        int   `json:"waiting"`
	ProcessedCount int64 `json:"processed_count"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
}

// Queue 限制同時進行的 LLM 呼叫數量，超出 workers 的請求排隊等待，
// 排隊數超過 maxSize 時直接拒絕
type Queue struct {
	llm       Completer
	slots     chan struct{}
	maxSize   int
	waiting   atomic.Int64
	processed atomic.Int64
}

// NewQueue 以隊列包裝 Completer
func NewQueue(llm Completer, cfg *config.QueueConfig) *Queue {
	workers, maxSize := 2, 10
	if cfg != nil {
		if cfg.Workers > 0 {
			workers = cfg.Workers
		}
		if cfg.MaxSize >= 0 {
			maxSize = cfg.MaxSize
		}
	}
	return &Queue{
		llm:     llm,
		slots:   make(chan struct{}, workers),
		maxSize: maxSize,
	}
}

// Complete 取得工作槽後呼叫底層 Completer
func (q *Queue) Complete(ctx context.Context, messages []Message) (string, error) {
	select {
	case q.slots <- struct{}{}:
	default:
		// 檢查隊列容量
		if n := q.waiting.Add(1); n > int64(q.maxSize) {
			q.waiting.Add(-1)
			common.LogWarn("Generation queue is full", zap.Int("max_queue_size", q.maxSize))
			return "", ErrQueueFull
		}
		common.LogInfo("Request enqueued", zap.Int64("queue_length", q.waiting.Load()))

		select {
		case q.slots <- struct{}{}:
			q.waiting.Add(-1)
		case <-ctx.Done():
			q.waiting.Add(-1)
			return "", ctx.Err()
		}
	}
	defer func() {
		<-q.slots
		q.processed.Add(1)
	}()

	return q.llm.Complete(ctx, messages)
}

// Status 獲取隊列狀態
func (q *Queue) Status() QueueStatus {
	return QueueStatus{
		InFlight:       len(q.slots),
		Waiting:        int(q.waiting.Load()),
		ProcessedCount: q.processed.Load(),
		MaxQueueSize:   q.maxSize,
		Workers:        cap(q.slots),
	}
}
