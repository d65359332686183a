package app

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/annel0/worldstream/internal/logging"
	"github.com/annel0/worldstream/internal/observability"
	"github.com/annel0/worldstream/internal/vec"
	"github.com/annel0/worldstream/internal/world"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrQueueFull возвращается, если очередь команд переполнена
var ErrQueueFull = errors.New("очередь команд переполнена")

const commandQueueSize = 64

type commandKind uint8

const (
	cmdReset commandKind = iota
	cmdSetPalette
	cmdMoveTo
)

// command выполняется в начале следующего тика
type command struct {
	kind    commandKind
	palette world.Palette
	target  vec.Vec2Float
	reply   chan commandResult
}

type commandResult struct {
	unloaded int
	err      error
}

// Runner - однопоточный игровой цикл. Только он вызывает ChunkManager;
// остальные горутины читают Snapshot и пишут через очередь команд.
type Runner struct {
	manager  *world.ChunkManager
	path     Path
	interval time.Duration

	commands chan command
	snapshot atomic.Pointer[Snapshot]

	tracer    trace.Tracer
	log       *logging.Logger
	sessionID string

	// Состояние цикла; доступно только из горутины тика
	tick     uint64
	origin   vec.Vec2Float
	elapsed  time.Duration
	position vec.Vec2Float
}

// RunnerOption настраивает Runner
type RunnerOption func(*Runner)

// WithTracerProvider задаёт провайдер трейсинга (по умолчанию глобальный)
func WithTracerProvider(tp trace.TracerProvider) RunnerOption {
	return func(r *Runner) { r.tracer = observability.Tracer(tp) }
}

// WithStart задаёт стартовую точку пути
func WithStart(x, y float64) RunnerOption {
	return func(r *Runner) { r.origin = vec.Vec2Float{X: x, Y: y} }
}

// WithSessionID задаёт идентификатор сессии (по умолчанию UUID)
func WithSessionID(id string) RunnerOption {
	return func(r *Runner) { r.sessionID = id }
}

// NewRunner создаёт игровой цикл вокруг менеджера чанков
func NewRunner(manager *world.ChunkManager, path Path, interval time.Duration, opts ...RunnerOption) *Runner {
	r := &Runner{
		manager:   manager,
		path:      path,
		interval:  interval,
		commands:  make(chan command, commandQueueSize),
		tracer:    observability.Tracer(nil),
		log:       logging.GetRunnerLogger(),
		sessionID: uuid.NewString(),
	}
	for _, o := range opts {
		o(r)
	}
	r.position = r.origin
	r.snapshot.Store(&Snapshot{SessionID: r.sessionID, Position: Point{X: r.origin.X, Y: r.origin.Y}})
	return r
}

// SessionID возвращает идентификатор сессии стримера
func (r *Runner) SessionID() string {
	return r.sessionID
}

// Snapshot возвращает последний опубликованный срез. Безопасен из любой горутины.
func (r *Runner) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// Run крутит тики до отмены ctx
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("▶ Игровой цикл запущен: тик %v, сессия %s", r.interval, r.sessionID)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Step(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("⏹ Игровой цикл остановлен на тике %d", r.tick)
			return nil
		case <-ticker.C:
			r.Step(ctx)
		}
	}
}

// Step выполняет один тик: команды, движение, Update, публикация среза
func (r *Runner) Step(ctx context.Context) {
	r.tick++
	_, span := r.tracer.Start(ctx, "world.tick", trace.WithAttributes(
		attribute.Int64("world.tick", int64(r.tick)),
	))
	defer span.End()

	r.drainCommands()

	r.elapsed += r.interval
	if r.path != nil {
		r.position = r.path(r.origin, r.elapsed)
	}

	res := r.manager.Update(r.position.X, r.position.Y)

	span.SetAttributes(
		attribute.Int("world.center.x", res.Center.X),
		attribute.Int("world.center.y", res.Center.Y),
		attribute.Bool("world.changed", res.Changed),
		attribute.Int("world.loaded", len(res.Loaded)),
		attribute.Int("world.unloaded", len(res.Unloaded)),
		attribute.Int("world.failed", len(res.Failed)),
	)
	if len(res.Failed) > 0 {
		span.SetStatus(codes.Error, "не все чанки загружены")
	}

	r.snapshot.Store(buildSnapshot(r.manager, r.sessionID, r.tick, Point{X: r.position.X, Y: r.position.Y}))
}

// drainCommands выполняет все команды, накопившиеся к началу тика
func (r *Runner) drainCommands() {
	for {
		select {
		case cmd := <-r.commands:
			cmd.reply <- r.execute(cmd)
		default:
			return
		}
	}
}

func (r *Runner) execute(cmd command) commandResult {
	switch cmd.kind {
	case cmdReset:
		n := r.manager.ClearAll()
		r.log.Info("Сброс мира по команде: выгружено %d чанков", n)
		return commandResult{unloaded: n}
	case cmdSetPalette:
		return commandResult{err: r.manager.SetPalette(cmd.palette)}
	case cmdMoveTo:
		r.origin = cmd.target
		r.elapsed = 0
		r.position = cmd.target
		r.log.Info("Опорная точка перенесена в (%.1f, %.1f)", cmd.target.X, cmd.target.Y)
		return commandResult{}
	default:
		return commandResult{err: errors.New("неизвестная команда")}
	}
}

// submit ставит команду в очередь и ждёт её выполнения на тике
func (r *Runner) submit(ctx context.Context, cmd command) (commandResult, error) {
	cmd.reply = make(chan commandResult, 1)
	select {
	case r.commands <- cmd:
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	default:
		return commandResult{}, ErrQueueFull
	}

	select {
	case res := <-cmd.reply:
		return res, res.err
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	}
}

// Reset выгружает все чанки; следующий тик загрузит окрестность заново.
// Возвращает количество выгруженных чанков.
func (r *Runner) Reset(ctx context.Context) (int, error) {
	res, err := r.submit(ctx, command{kind: cmdReset})
	return res.unloaded, err
}

// SetPalette заменяет палитру декораций для чанков, загружаемых дальше
func (r *Runner) SetPalette(ctx context.Context, p world.Palette) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := r.submit(ctx, command{kind: cmdSetPalette, palette: p.Clone()})
	return err
}

// MoveTo переносит опорную точку; путь продолжается от новой точки
func (r *Runner) MoveTo(ctx context.Context, x, y float64) error {
	_, err := r.submit(ctx, command{kind: cmdMoveTo, target: vec.Vec2Float{X: x, Y: y}})
	return err
}
