package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkEnvelope(t *testing.T, eventType string, x, y int) *Envelope {
	t.Helper()
	ev, err := NewChunkEnvelope("test", "session", eventType, ChunkPayload{X: x, Y: y, Tick: 1})
	require.NoError(t, err)
	return ev
}

func TestMemoryBusDeliversInOrder(t *testing.T) {
	bus := NewMemoryBus(16)

	var mu sync.Mutex
	var got []ChunkPayload
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{TypeChunkLoaded}}, func(ctx context.Context, ev *Envelope) {
		p, err := DecodeChunkPayload(ev)
		require.NoError(t, err)
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(context.Background(), chunkEnvelope(t, TypeChunkLoaded, i, -i)))
	}
	require.NoError(t, bus.Publish(context.Background(), chunkEnvelope(t, TypeChunkUnloaded, 9, 9)))
	require.NoError(t, bus.Close(), "Close дожидается доставки")

	require.Len(t, got, 5, "фильтр пропускает только ChunkLoaded")
	for i, p := range got {
		assert.Equal(t, i, p.X)
		assert.Equal(t, -i, p.Y)
	}

	stats := bus.Metrics()
	assert.Equal(t, uint64(6), stats.Published)
	assert.Equal(t, uint64(5), stats.Consumed)
}

func TestMemoryBusDropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1)
	block := make(chan struct{})
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		<-block
	})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(context.Background(), chunkEnvelope(t, TypeChunkLoaded, i, 0)))
	}
	stats := bus.Metrics()
	assert.Greater(t, stats.Dropped, uint64(0), "события низкого приоритета отбрасываются без блокировки")
	assert.Equal(t, uint64(10), stats.Published+stats.Dropped)

	close(block)
	require.NoError(t, bus.Close())
}

func TestMemoryBusHighPriorityRespectsContext(t *testing.T) {
	bus := NewMemoryBus(1)
	block := make(chan struct{})
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		<-block
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var lastErr error
	for i := 0; i < 4 && lastErr == nil; i++ {
		lastErr = bus.Publish(ctx, &Envelope{ID: "x", EventType: "Critical", Priority: 9})
	}
	assert.ErrorIs(t, lastErr, context.DeadlineExceeded)

	close(block)
	require.NoError(t, bus.Close())
}

func TestMemoryBusUnsubscribeAndClose(t *testing.T) {
	bus := NewMemoryBus(4)
	calls := 0
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		calls++
	})
	require.NoError(t, err)
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), chunkEnvelope(t, TypeChunkLoaded, 0, 0)))
	require.NoError(t, bus.Close())
	assert.Zero(t, calls)

	assert.ErrorIs(t, bus.Publish(context.Background(), chunkEnvelope(t, TypeChunkLoaded, 0, 0)), ErrClosed)
	_, err = bus.Subscribe(context.Background(), Filter{}, nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, bus.Close(), "повторное закрытие безопасно")
}

func TestChunkEnvelope(t *testing.T) {
	ev := chunkEnvelope(t, TypeChunkFailed, 3, 4)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, 3, ev.Priority)
	assert.Equal(t, "session", ev.CorrelationID)

	loaded := chunkEnvelope(t, TypeChunkLoaded, 3, 4)
	assert.Equal(t, 1, loaded.Priority)
	assert.NotEqual(t, ev.ID, loaded.ID)

	loaded.Version = 99
	_, err := DecodeChunkPayload(loaded)
	assert.Error(t, err)
}

func TestMetricsExporterCollect(t *testing.T) {
	bus := NewMemoryBus(8)
	reg := prometheus.NewRegistry()
	exporter := NewMetricsExporter(bus, reg)

	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(context.Background(), chunkEnvelope(t, TypeChunkLoaded, i, 0)))
	}
	exporter.Collect()
	assert.Equal(t, 3.0, testutil.ToFloat64(exporter.published))

	require.NoError(t, bus.Publish(context.Background(), chunkEnvelope(t, TypeChunkLoaded, 5, 0)))
	exporter.Collect()
	exporter.Collect()
	assert.Equal(t, 4.0, testutil.ToFloat64(exporter.published), "повторный сбор не удваивает счётчик")

	count, err := testutil.GatherAndCount(reg, "worldstream_eventbus_messages_published_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.NoError(t, bus.Close())
}

func TestMetricsExporterStartStop(t *testing.T) {
	bus := NewMemoryBus(8)
	exporter := NewMetricsExporter(bus, nil)
	exporter.Start(10 * time.Millisecond)
	require.NoError(t, bus.Publish(context.Background(), chunkEnvelope(t, TypeChunkLoaded, 1, 1)))
	exporter.Stop()
	assert.Equal(t, 1.0, testutil.ToFloat64(exporter.published), "Stop выполняет финальный сбор")
	require.NoError(t, bus.Close())
}
