package ai

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-catalog/internal/infrastructure/config"
	"recipe-catalog/internal/pkg/common"
)

// blockingCompleter 在 release 關閉前不回傳
type blockingCompleter struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingCompleter) Complete(ctx context.Context, _ []Message) (string, error) {
	b.started <- struct{}{}
	<-b.release
	return "ok", nil
}

func TestQueueLimitsConcurrency(t *testing.T) {
	common.InitNopLogger()
	llm := &blockingCompleter{started: make(chan struct{}, 4), release: make(chan struct{})}
	q := NewQueue(llm, &config.QueueConfig{Workers: 1, MaxSize: 1})

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = q.Complete(context.Background(), nil)
		}()
	}

	<-llm.started
	require.Eventually(t, func() bool { return q.Status().Waiting == 1 }, time.Second, time.Millisecond)

	// 第三個請求超過隊列容量
	_, err := q.Complete(context.Background(), nil)
	assert.ErrorIs(t, err, ErrQueueFull)

	close(llm.release)
	wg.Wait()
	assert.NoError(t, results[0])
	assert.NoError(t, results[1])

	status := q.Status()
	assert.Equal(t, int64(2), status.ProcessedCount)
	assert.Equal(t, 0, status.InFlight)
	assert.Equal(t, 0, status.Waiting)
	assert.Equal(t, 1, status.Workers)
}

func TestQueueWaitRespectsContext(t *testing.T) {
	common.InitNopLogger()
	llm := &blockingCompleter{started: make(chan struct{}, 1), release: make(chan struct{})}
	q := NewQueue(llm, &config.QueueConfig{Workers: 1, MaxSize: 5})

	go func() { _, _ = q.Complete(context.Background(), nil) }()
	<-llm.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := q.Complete(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, q.Status().Waiting)

	close(llm.release)
}
