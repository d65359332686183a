package world

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StreamMetrics - Prometheus-метрики стриминга чанков.
// Нулевой указатель допустим: все методы в этом случае ничего не делают.
type StreamMetrics struct {
	loads           prometheus.Counter
	unloads         prometheus.Counter
	failures        prometheus.Counter
	placeholders    prometheus.Counter
	activeChunks    prometheus.Gauge
	activeObstacles prometheus.Gauge
	updateDuration  prometheus.Histogram
}

// NewStreamMetrics создаёт метрики и регистрирует их в reg (если reg != nil)
func NewStreamMetrics(reg prometheus.Registerer) *StreamMetrics {
	m := &StreamMetrics{
		loads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "worldstream",
			Name:      "chunk_loads_total",
			Help:      "Общее число загруженных чанков.",
		}),
		unloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "worldstream",
			Name:      "chunk_unloads_total",
			Help:      "Общее число выгруженных чанков.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "worldstream",
			Name:      "chunk_load_failures_total",
			Help:      "Чанки, генерация которых завершилась ошибкой.",
		}),
		placeholders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "worldstream",
			Name:      "placeholders_total",
			Help:      "Визуальные ресурсы, заменённые заглушкой.",
		}),
		activeChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "worldstream",
			Name:      "active_chunks",
			Help:      "Количество активных чанков.",
		}),
		activeObstacles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "worldstream",
			Name:      "active_obstacles",
			Help:      "Количество активных форм в реестре коллизий.",
		}),
		updateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "worldstream",
			Name:      "update_duration_seconds",
			Help:      "Длительность обновления набора чанков за тик.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}

	if reg != nil {
		reg.MustRegister(m.loads, m.unloads, m.failures, m.placeholders,
			m.activeChunks, m.activeObstacles, m.updateDuration)
	}
	return m
}

func (m *StreamMetrics) chunkLoaded() {
	if m == nil {
		return
	}
	m.loads.Inc()
}

func (m *StreamMetrics) chunkUnloaded() {
	if m == nil {
		return
	}
	m.unloads.Inc()
}

func (m *StreamMetrics) chunkFailed() {
	if m == nil {
		return
	}
	m.failures.Inc()
}

func (m *StreamMetrics) placeholderUsed() {
	if m == nil {
		return
	}
	m.placeholders.Inc()
}

func (m *StreamMetrics) observe(start time.Time, chunks, obstacles int) {
	if m == nil {
		return
	}
	m.updateDuration.Observe(time.Since(start).Seconds())
	m.setActive(chunks, obstacles)
}

func (m *StreamMetrics) setActive(chunks, obstacles int) {
	if m == nil {
		return
	}
	m.activeChunks.Set(float64(chunks))
	m.activeObstacles.Set(float64(obstacles))
}
