package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/annel0/worldstream/internal/config"
	"github.com/annel0/worldstream/internal/eventbus"
	"github.com/annel0/worldstream/internal/vec"
	"github.com/annel0/worldstream/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestWorld(t *testing.T, options ...world.Option) *world.ChunkManager {
	t.Helper()
	opts := config.Default().WorldOptions()
	opts.RenderDistance = 1
	m, err := world.NewChunkManager(opts, options...)
	require.NoError(t, err)
	return m
}

// startRunner запускает цикл в фоне и останавливает его по завершении теста
func startRunner(t *testing.T, r *Runner) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestRunnerStepPublishesSnapshot(t *testing.T) {
	r := NewRunner(newTestWorld(t), LinePath(256), time.Second, WithSessionID("s-1"))
	assert.Equal(t, uint64(0), r.Snapshot().Tick, "до первого тика доступен пустой срез")

	r.Step(context.Background())
	s := r.Snapshot()
	assert.Equal(t, uint64(1), s.Tick)
	assert.Equal(t, "s-1", s.SessionID)
	assert.Equal(t, Point{X: 256, Y: 0}, s.Position)
	assert.Equal(t, ChunkRef{X: 1, Y: 0}, s.Center)
	require.Len(t, s.Chunks, 9)
	assert.Equal(t, ChunkRef{X: 0, Y: -1}, s.Chunks[0].ChunkRef, "чанки идут построчно")
	assert.Empty(t, s.Failed)
	assert.Equal(t, uint64(9), s.Stats.Loads)

	total := 0
	for _, c := range s.Chunks {
		assert.Equal(t, "loaded", c.State)
		sum := 0
		for _, n := range c.Tiles {
			sum += n
		}
		assert.Equal(t, 256, sum, "гистограмма покрывает все тайлы чанка")
		total += c.Obstacles
	}
	assert.Len(t, s.Obstacles, total)

	// Старый срез не меняется после следующего тика
	r.Step(context.Background())
	assert.Equal(t, uint64(1), s.Tick)
	assert.Equal(t, uint64(2), r.Snapshot().Tick)
	assert.Equal(t, ChunkRef{X: 2, Y: 0}, r.Snapshot().Center)
}

func TestRunnerCommands(t *testing.T) {
	r := NewRunner(newTestWorld(t), nil, 5*time.Millisecond)
	startRunner(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, r.MoveTo(ctx, 10000, 0))
	assert.Eventually(t, func() bool {
		return r.Snapshot().Center == ChunkRef{X: 39, Y: 0}
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, r.SetPalette(ctx, world.Palette{}))
	assert.Eventually(t, func() bool {
		return len(r.Snapshot().Palette) == 0
	}, time.Second, 5*time.Millisecond)

	err := r.SetPalette(ctx, world.Palette{{Kind: "tree", Scale: -1}})
	assert.True(t, errors.Is(err, world.ErrInvalidPalette))

	n, err := r.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Eventually(t, func() bool {
		return len(r.Snapshot().Chunks) == 9
	}, time.Second, 5*time.Millisecond, "после сброса окрестность загружается заново")
}

func TestRunnerSubmitWithoutLoop(t *testing.T) {
	r := NewRunner(newTestWorld(t), nil, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.MoveTo(ctx, 1, 1), context.DeadlineExceeded)

	for len(r.commands) < cap(r.commands) {
		r.commands <- command{kind: cmdMoveTo, reply: make(chan commandResult, 1)}
	}
	assert.ErrorIs(t, r.MoveTo(context.Background(), 1, 1), ErrQueueFull)
}

func TestRunnerTicksAreTraced(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	r := NewRunner(newTestWorld(t), nil, time.Second, WithTracerProvider(tp), WithStart(100, 100))
	r.Step(context.Background())
	r.Step(context.Background())

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "world.tick", spans[0].Name())

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, int64(9), attrs["world.loaded"].AsInt64())
	assert.True(t, attrs["world.changed"].AsBool())

	attrs = make(map[attribute.Key]attribute.Value)
	for _, kv := range spans[1].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.False(t, attrs["world.changed"].AsBool(), "точка стоит на месте")
}

func TestBusSinkPublishesLifecycle(t *testing.T) {
	bus := eventbus.NewMemoryBus(256)

	var mu sync.Mutex
	counts := make(map[string]int)
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{}, func(ctx context.Context, ev *eventbus.Envelope) {
		_, err := eventbus.DecodeChunkPayload(ev)
		assert.NoError(t, err)
		assert.Equal(t, "session", ev.CorrelationID)
		mu.Lock()
		counts[ev.EventType]++
		mu.Unlock()
	})
	require.NoError(t, err)

	m := newTestWorld(t, world.WithEventSink(NewBusSink(bus, "worldstream", "session")))
	m.Update(0, 0)
	m.Update(300, 0)
	require.NoError(t, bus.Close())

	assert.Equal(t, 12, counts[eventbus.TypeChunkLoaded])
	assert.Equal(t, 3, counts[eventbus.TypeChunkUnloaded])
}

func TestPaths(t *testing.T) {
	origin := vec.Vec2Float{X: 10, Y: 20}

	assert.Equal(t, vec.Vec2Float{X: 30, Y: 20}, LinePath(10)(origin, 2*time.Second))

	start := CirclePath(100, 50)(origin, 0)
	assert.InDelta(t, 60, start.X, 1e-9)
	assert.InDelta(t, 20, start.Y, 1e-9)
	p := CirclePath(100, 50)(origin, 3*time.Second)
	assert.InDelta(t, 50, p.DistanceTo(origin), 1e-9, "точка остаётся на окружности")

	assert.Equal(t, origin, TeleportPath(1000, time.Second)(origin, 900*time.Millisecond))
	assert.Equal(t, vec.Vec2Float{X: 2010, Y: 2020}, TeleportPath(1000, time.Second)(origin, 2500*time.Millisecond))

	for _, name := range []string{"", "line", "circle", "teleport"} {
		path, err := NewPath(config.SimulationConfig{Path: name, Speed: 1, Radius: 1, Jump: 1})
		require.NoError(t, err, name)
		assert.NotNil(t, path)
	}
	_, err := NewPath(config.SimulationConfig{Path: "spiral"})
	assert.Error(t, err)
}
