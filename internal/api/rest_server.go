package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/worldstream/internal/app"
	"github.com/annel0/worldstream/internal/logging"
	"github.com/annel0/worldstream/internal/middleware"
	"github.com/annel0/worldstream/internal/physics"
	"github.com/annel0/worldstream/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// commandTimeout - сколько обработчик ждёт выполнения команды на тике
const commandTimeout = 2 * time.Second

// MaxMoveCoordinate - предел |x| и |y| для команды move в мировых единицах
const MaxMoveCoordinate = 1e15

// WorldController - то, что inspect API может делать с миром.
// Реализуется app.Runner: чтение идёт из среза, запись через очередь команд.
type WorldController interface {
	Snapshot() *app.Snapshot
	Reset(ctx context.Context) (int, error)
	SetPalette(ctx context.Context, p world.Palette) error
	MoveTo(ctx context.Context, x, y float64) error
}

// InspectServer - HTTP API для наблюдения за стримером мира
type InspectServer struct {
	router     *gin.Engine
	http       *http.Server
	controller WorldController
	metrics    *ServerMetrics
	log        *logging.Logger
}

// Config содержит конфигурацию для inspect сервера
type Config struct {
	Port        string               // порт для запуска сервера
	ServiceName string               // имя сервиса для трейсинга и метрик
	Controller  WorldController      // игровой цикл
	Registry    *prometheus.Registry // регистр метрик; nil - дефолтный
}

// NewInspectServer создает новый inspect сервер
func NewInspectServer(config Config) *InspectServer {
	if config.Port == "" {
		config.Port = ":8090"
	}
	if config.ServiceName == "" {
		config.ServiceName = "worldstream"
	}

	// Устанавливаем режим релиза для gin, если тесты не выбрали свой
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	log := logging.GetServerLogger()

	// === Observability middleware ===
	router.Use(otelgin.Middleware(config.ServiceName))

	loggerMw := middleware.NewRequestLogger(log, "/health", "/metrics")
	router.Use(loggerMw.Handler())

	var reg prometheus.Registerer
	var gatherer prometheus.Gatherer
	if config.Registry != nil {
		reg, gatherer = config.Registry, config.Registry
	}
	promMw := middleware.NewPrometheusMiddleware(config.ServiceName, reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gatherer)

	server := &InspectServer{
		router:     router,
		controller: config.Controller,
		metrics:    NewServerMetrics(),
		log:        log,
		http: &http.Server{
			Addr:              config.Port,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	server.setupRoutes()
	return server
}

// setupRoutes настраивает маршруты API
func (s *InspectServer) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.GET("/status", s.handleStatus)

	w := api.Group("/world")
	{
		w.GET("/chunks", s.handleChunks)
		w.GET("/obstacles", s.handleObstacles)
		w.POST("/reset", s.handleReset)
		w.PUT("/palette", s.handlePalette)
		w.POST("/move", s.handleMove)
	}
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MoveRequest - запрос на перенос опорной точки
type MoveRequest struct {
	X *float64 `json:"x" binding:"required"`
	Y *float64 `json:"y" binding:"required"`
}

// Handler возвращает http.Handler сервера (для тестов и встраивания)
func (s *InspectServer) Handler() http.Handler {
	return s.router
}

// Start запускает HTTP сервер; блокируется до Shutdown
func (s *InspectServer) Start() error {
	s.log.Info("🌐 Inspect API слушает %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("inspect API: %w", err)
	}
	return nil
}

// Shutdown останавливает HTTP сервер
func (s *InspectServer) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// handleHealth - проба живости
func (s *InspectServer) handleHealth(c *gin.Context) {
	snap := s.controller.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"tick":   snap.Tick,
	})
}

// handleStatus возвращает сводку по миру и процессу
func (s *InspectServer) handleStatus(c *gin.Context) {
	snap := s.controller.Snapshot()

	server := map[string]interface{}{
		"uptime":         s.metrics.GetUptime(),
		"server_time":    time.Now().Unix(),
		"memory_details": s.metrics.GetDetailedMemoryStats(),
	}
	if rss, err := s.metrics.GetRSS(); err == nil {
		server["memory_rss_mb"] = fmt.Sprintf("%.2f", rss)
	}
	if cpu, err := s.metrics.GetCPUUsage(); err == nil {
		server["cpu_percent"] = fmt.Sprintf("%.2f", cpu)
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние стримера",
		Data: map[string]interface{}{
			"session_id":    snap.SessionID,
			"tick":          snap.Tick,
			"updated_at":    snap.UpdatedAt,
			"position":      snap.Position,
			"center":        snap.Center,
			"active_chunks": len(snap.Chunks),
			"obstacles":     len(snap.Obstacles),
			"failed":        snap.Failed,
			"stats":         snap.Stats,
			"server":        server,
		},
	})
}

// handleChunks возвращает активные чанки
func (s *InspectServer) handleChunks(c *gin.Context) {
	snap := s.controller.Snapshot()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Активные чанки",
		Data: map[string]interface{}{
			"tick":   snap.Tick,
			"center": snap.Center,
			"chunks": snap.Chunks,
			"failed": snap.Failed,
		},
	})
}

// handleObstacles возвращает хитбоксы. Параметры min_x, min_y, max_x, max_y
// (все четыре) ограничивают выборку прямоугольником.
func (s *InspectServer) handleObstacles(c *gin.Context) {
	snap := s.controller.Snapshot()

	area, filtered, err := parseArea(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	obstacles := snap.Obstacles
	if filtered {
		obstacles = make([]app.ObstacleInfo, 0)
		for _, o := range snap.Obstacles {
			shape := physics.Rect{MinX: o.MinX, MinY: o.MinY, MaxX: o.MaxX, MaxY: o.MaxY}
			if physics.Overlaps(shape, area) {
				obstacles = append(obstacles, o)
			}
		}
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Активные препятствия",
		Data: map[string]interface{}{
			"tick":      snap.Tick,
			"count":     len(obstacles),
			"obstacles": obstacles,
		},
	})
}

func parseArea(c *gin.Context) (physics.Rect, bool, error) {
	keys := []string{"min_x", "min_y", "max_x", "max_y"}
	values := make([]float64, 0, len(keys))
	for _, k := range keys {
		raw, ok := c.GetQuery(k)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return physics.Rect{}, false, fmt.Errorf("параметр %s: %w", k, err)
		}
		values = append(values, v)
	}
	switch len(values) {
	case 0:
		return physics.Rect{}, false, nil
	case len(keys):
		r := physics.Rect{MinX: values[0], MinY: values[1], MaxX: values[2], MaxY: values[3]}
		if r.MinX > r.MaxX || r.MinY > r.MaxY {
			return physics.Rect{}, false, errors.New("пустой прямоугольник выборки")
		}
		return r, true, nil
	default:
		return physics.Rect{}, false, errors.New("нужны все параметры min_x, min_y, max_x, max_y")
	}
}

// handleReset выгружает все чанки
func (s *InspectServer) handleReset(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	n, err := s.controller.Reset(ctx)
	if err != nil {
		s.commandError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Мир сброшен",
		Data:    map[string]interface{}{"unloaded": n},
	})
}

// handlePalette заменяет палитру декораций
func (s *InspectServer) handlePalette(c *gin.Context) {
	var palette world.Palette
	if err := c.ShouldBindJSON(&palette); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный формат запроса"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	if err := s.controller.SetPalette(ctx, palette); err != nil {
		s.commandError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Палитра заменена; действует для новых чанков",
		Data:    map[string]interface{}{"entries": len(palette)},
	})
}

// handleMove переносит опорную точку
func (s *InspectServer) handleMove(c *gin.Context) {
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный формат запроса"})
		return
	}
	if math.Abs(*req.X) > MaxMoveCoordinate || math.Abs(*req.Y) > MaxMoveCoordinate {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: fmt.Sprintf("Координаты вне диапазона ±%g", MaxMoveCoordinate),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	if err := s.controller.MoveTo(ctx, *req.X, *req.Y); err != nil {
		s.commandError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Опорная точка перенесена",
		Data:    map[string]interface{}{"x": *req.X, "y": *req.Y},
	})
}

// commandError отображает ошибку команды в HTTP статус
func (s *InspectServer) commandError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, world.ErrInvalidPalette):
		status = http.StatusBadRequest
	case errors.Is(err, app.ErrQueueFull):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		s.log.Warn("Команда %s %s не выполнена: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, GenericResponse{Success: false, Message: err.Error()})
}
