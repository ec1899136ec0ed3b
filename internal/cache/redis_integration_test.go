package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"caseopener-rest-api/internal/metrics"
	"caseopener-rest-api/internal/model"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

type recordingFlush struct {
	mu      sync.Mutex
	records []model.AcquisitionRecord
	fail    bool
}

func (f *recordingFlush) flush(ctx context.Context, records []model.AcquisitionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("database unavailable")
	}
	f.records = append(f.records, records...)
	return nil
}

func (f *recordingFlush) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func TestRedisIntegration(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	t.Run("session cache", func(t *testing.T) {
		c := NewRedisCache(client, "test:")
		_, err := c.Get(ctx, "token:missing")
		assert.ErrorIs(t, err, ErrCacheMiss)

		require.NoError(t, c.Set(ctx, "token:a", []byte("payload"), time.Minute))
		got, err := c.Get(ctx, "token:a")
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), got)

		require.NoError(t, c.Delete(ctx, "token:a"))
		_, err = c.Get(ctx, "token:a")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("history buffer requeues failed batches", func(t *testing.T) {
		sink := &recordingFlush{fail: true}
		buf := NewRedisHistoryBuffer(client, RedisBufferConfig{
			FlushInterval: time.Hour,
			KeyPrefix:     "test:history:requeue",
		}, sink.flush)

		for i := 1; i <= 3; i++ {
			require.NoError(t, buf.Record(ctx, model.AcquisitionRecord{UserID: 1, ItemID: int64(i), CaseID: 0}))
		}

		_, err := buf.FlushBatch(ctx)
		require.Error(t, err)
		n, err := buf.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		sink.mu.Lock()
		sink.fail = false
		sink.mu.Unlock()

		require.NoError(t, buf.Close())
		require.Equal(t, 3, sink.count())
		for i, rec := range sink.records {
			assert.Equal(t, int64(i+1), rec.ItemID)
			assert.False(t, rec.CreatedAt.IsZero())
		}
	})

	t.Run("history buffer drains past one batch", func(t *testing.T) {
		var batches []int
		buf := NewRedisHistoryBuffer(client, RedisBufferConfig{
			FlushInterval: time.Hour,
			KeyPrefix:     "test:history:drain",
		}, func(ctx context.Context, records []model.AcquisitionRecord) error {
			batches = append(batches, len(records))
			return nil
		})
		defer buf.Close()

		total := MaxBatchSize*2 + 50
		for i := range total {
			require.NoError(t, buf.Record(ctx, model.AcquisitionRecord{UserID: 4, ItemID: int64(i + 1)}))
		}

		require.NoError(t, buf.Flush(ctx))
		assert.Equal(t, []int{MaxBatchSize, MaxBatchSize, 50}, batches)
		n, err := buf.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("history buffer counts records dropped by the queue cap", func(t *testing.T) {
		sink := &recordingFlush{}
		buf := NewRedisHistoryBuffer(client, RedisBufferConfig{
			FlushInterval:  time.Hour,
			KeyPrefix:      "test:history:cap",
			MaxQueueLength: 2,
		}, sink.flush)

		before := testutil.ToFloat64(metrics.HistoryWriteFailuresTotal)
		for i := 1; i <= 3; i++ {
			require.NoError(t, buf.Record(ctx, model.AcquisitionRecord{UserID: 3, ItemID: int64(i)}))
		}
		assert.Equal(t, before+1, testutil.ToFloat64(metrics.HistoryWriteFailuresTotal))

		n, err := buf.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		require.NoError(t, buf.Close())
		require.Equal(t, 2, sink.count())
		assert.Equal(t, int64(2), sink.records[0].ItemID)
		assert.Equal(t, int64(3), sink.records[1].ItemID)
	})

	t.Run("history buffer flushes in background", func(t *testing.T) {
		sink := &recordingFlush{}
		buf := NewRedisHistoryBuffer(client, RedisBufferConfig{
			FlushInterval: 50 * time.Millisecond,
			KeyPrefix:     "test:history:bg",
		}, sink.flush)
		defer buf.Close()

		require.NoError(t, buf.Record(ctx, model.AcquisitionRecord{UserID: 2, ItemID: 9, CaseName: "Alpha Case 1"}))
		assert.Eventually(t, func() bool { return sink.count() == 1 }, 5*time.Second, 20*time.Millisecond)
	})
}
