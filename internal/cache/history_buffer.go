package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"caseopener-rest-api/internal/metrics"
	"caseopener-rest-api/internal/model"
)

// Buffer configuration
const (
	MaxBatchSize   = 100
	MaxQueueLength = 100000
	FlushTimeout   = 30 * time.Second
	DrainTimeout   = 2 * time.Minute
)

// FlushFunc persists a batch of buffered acquisition records.
type FlushFunc func(ctx context.Context, records []model.AcquisitionRecord) error

// RedisHistoryBuffer queues acquisition records in a Redis list and writes
// them to the database in batches. Records are claimed with LPOP so several
// API instances can share one queue; a failed batch is pushed back to the head.
type RedisHistoryBuffer struct {
	client    *redis.Client
	flushFunc FlushFunc
	ticker    *time.Ticker
	stop      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
	keyPrefix string
	maxQueue  int64
}

// RedisBufferConfig holds configuration for the history buffer.
type RedisBufferConfig struct {
	FlushInterval time.Duration
	KeyPrefix     string
	// MaxQueueLength caps the queue; the oldest records are dropped beyond it.
	MaxQueueLength int64
}

// NewRedisHistoryBuffer starts a buffer that flushes every FlushInterval.
func NewRedisHistoryBuffer(client *redis.Client, cfg RedisBufferConfig, flushFunc FlushFunc) *RedisHistoryBuffer {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.MaxQueueLength <= 0 {
		cfg.MaxQueueLength = MaxQueueLength
	}
	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "caseopener:history"
	}

	b := &RedisHistoryBuffer{
		client:    client,
		flushFunc: flushFunc,
		ticker:    time.NewTicker(cfg.FlushInterval),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		keyPrefix: keyPrefix,
		maxQueue:  cfg.MaxQueueLength,
	}

	go b.backgroundFlush()

	slog.Info("History buffer started", "prefix", keyPrefix, "flush_interval", cfg.FlushInterval, "batch", MaxBatchSize)
	return b
}

func (b *RedisHistoryBuffer) queueKey() string {
	return b.keyPrefix + ":queue"
}

// Record enqueues one record. The queue is capped at the configured length;
// the oldest entries are dropped and counted as failed history writes.
func (b *RedisHistoryBuffer) Record(ctx context.Context, rec model.AcquisitionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	pipe := b.client.TxPipeline()
	length := pipe.RPush(ctx, b.queueKey(), data)
	pipe.LTrim(ctx, b.queueKey(), -b.maxQueue, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	if dropped := length.Val() - b.maxQueue; dropped > 0 {
		metrics.HistoryWriteFailuresTotal.Add(float64(dropped))
		slog.Warn("History queue full, dropped oldest records", "dropped", dropped, "max_queue", b.maxQueue)
	}
	return nil
}

// Count returns the number of queued records.
func (b *RedisHistoryBuffer) Count(ctx context.Context) (int64, error) {
	return b.client.LLen(ctx, b.queueKey()).Result()
}

// FlushBatch writes up to MaxBatchSize records to the database.
func (b *RedisHistoryBuffer) FlushBatch(ctx context.Context) (int, error) {
	raw, err := b.client.LPopCount(ctx, b.queueKey(), MaxBatchSize).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	records := make([]model.AcquisitionRecord, 0, len(raw))
	for _, item := range raw {
		var rec model.AcquisitionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			slog.Warn("Dropping undecodable history record", "error", err)
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := b.flushFunc(ctx, records); err != nil {
		b.requeue(ctx, raw)
		return 0, err
	}

	slog.Debug("Flushed history batch", "count", len(records))
	return len(records), nil
}

// requeue pushes a claimed batch back to the head in its original order.
func (b *RedisHistoryBuffer) requeue(ctx context.Context, raw []string) {
	values := make([]interface{}, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		values = append(values, raw[i])
	}
	if err := b.client.LPush(ctx, b.queueKey(), values...).Err(); err != nil {
		slog.Error("Failed to requeue history batch", "count", len(raw), "error", err)
	}
}

// Flush drains the queue until it is empty or a batch fails.
func (b *RedisHistoryBuffer) Flush(ctx context.Context) error {
	for {
		n, err := b.FlushBatch(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		// A batch of undecodable records flushes nothing but still shrinks the queue.
		remaining, err := b.Count(ctx)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return nil
		}
	}
}

func (b *RedisHistoryBuffer) backgroundFlush() {
	defer close(b.done)
	for {
		select {
		case <-b.ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), FlushTimeout)
			if err := b.Flush(ctx); err != nil {
				slog.Error("Background history flush failed", "error", err)
			}
			cancel()
		case <-b.stop:
			slog.Info("History buffer shutting down, flushing remaining records")
			ctx, cancel := context.WithTimeout(context.Background(), DrainTimeout)
			if err := b.Flush(ctx); err != nil {
				slog.Error("Shutdown history flush failed", "error", err)
			}
			cancel()
			return
		}
	}
}

// Close stops the buffer after a final flush. The Redis client is owned by
// the caller and stays open.
func (b *RedisHistoryBuffer) Close() error {
	b.stopOnce.Do(func() {
		b.ticker.Stop()
		close(b.stop)
	})
	<-b.done
	return nil
}
