package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/annel0/worldstream/internal/api"
	"github.com/annel0/worldstream/internal/app"
	"github.com/annel0/worldstream/internal/config"
	"github.com/annel0/worldstream/internal/eventbus"
	"github.com/annel0/worldstream/internal/logging"
	"github.com/annel0/worldstream/internal/observability"
	"github.com/annel0/worldstream/internal/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $WORLD_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// Инициализируем систему логирования
	logging.SetLogDir(cfg.Logging.Dir)
	if err := logging.InitDefaultLogger("streamer"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer func() { _ = logging.GetLoggerManager().CloseAll() }()
	applyLogLevels(cfg.Logging)

	logging.Info("🌍 Запуск стримера мира: seed=%d, тайл=%.0f, чанк=%dx%d, R=%d, режим=%s",
		cfg.World.Seed, cfg.World.TileSize, cfg.World.ChunkSide, cfg.World.ChunkSide,
		cfg.World.RenderDistance, cfg.World.TerrainMode)

	if err := run(cfg); err != nil {
		logging.Error("❌ Стример завершился с ошибкой: %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
	logging.Info("👋 Стример успешно остановлен")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === НАБЛЮДАЕМОСТЬ ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("Ошибка остановки OpenTelemetry: %v", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// === ШИНА СОБЫТИЙ ===
	bus, err := newEventBus(cfg.EventBus)
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Warn("Ошибка закрытия шины событий: %v", err)
		}
	}()
	if _, err := eventbus.StartLoggingListener(bus); err != nil {
		return err
	}
	busMetrics := eventbus.NewMetricsExporter(bus, registry)
	busMetrics.Start(time.Second)
	defer busMetrics.Stop()

	// === МИР ===
	path, err := app.NewPath(cfg.Simulation)
	if err != nil {
		return err
	}

	sessionSink := &deferredSink{}
	manager, err := world.NewChunkManager(cfg.WorldOptions(),
		world.WithMetrics(world.NewStreamMetrics(registry)),
		world.WithEventSink(sessionSink),
	)
	if err != nil {
		return err
	}

	runner := app.NewRunner(manager, path, cfg.Simulation.TickInterval(),
		app.WithStart(cfg.Simulation.StartX, cfg.Simulation.StartY))
	sessionSink.sink = app.NewBusSink(bus, cfg.Telemetry.ServiceName, runner.SessionID())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(gctx)
	})

	if cfg.Server.Enabled {
		port := cfg.Server.GetInspectPort()
		server := api.NewInspectServer(api.Config{
			Port:        ":" + strconv.Itoa(port),
			ServiceName: cfg.Telemetry.ServiceName,
			Controller:  runner,
			Registry:    registry,
		})
		g.Go(server.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})

		logging.Info("✅ Inspect API: http://localhost:%d", port)
		logging.Info("   ❤️  Health check: http://localhost:%d/health", port)
		logging.Info("   📈 Метрики: http://localhost:%d/metrics", port)
	}

	return g.Wait()
}

// deferredSink позволяет создать менеджер до того, как известен id сессии
type deferredSink struct {
	sink world.EventSink
}

func (d *deferredSink) OnChunkEvent(ev world.ChunkEvent) {
	if d.sink != nil {
		d.sink.OnChunkEvent(ev)
	}
}

// newEventBus выбирает JetStream, если задан URL, иначе in-memory шину
func newEventBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		logging.Info("🚌 Шина событий: in-memory")
		return eventbus.NewMemoryBus(1024), nil
	}
	retention := time.Duration(cfg.Retention) * time.Hour
	return eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, retention)
}

// applyLogLevels применяет уровни из конфигурации к логгеру по умолчанию и компонентам
func applyLogLevels(cfg config.LoggingConfig) {
	if err := logging.GetLoggerManager().ApplyLevelNames(cfg.ConsoleLevel, cfg.FileLevel); err != nil {
		logging.Warn("Неверный уровень логирования: %v", err)
		return
	}
	consoleLevel, _ := logging.ParseLevel(cfg.ConsoleLevel)
	logging.SetDefaultLevel(consoleLevel)
}
