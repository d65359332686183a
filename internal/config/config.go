package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/annel0/worldstream/internal/world"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации стримера мира.
type Config struct {
	World       WorldConfig        `yaml:"world"`
	Decorations []DecorationConfig `yaml:"decorations"`
	Server      ServerConfig       `yaml:"server"`
	EventBus    EventBusConfig     `yaml:"eventbus"`
	Telemetry   TelemetryConfig    `yaml:"telemetry"`
	Logging     LoggingConfig      `yaml:"logging"`
	Simulation  SimulationConfig   `yaml:"simulation"`
}

// WorldConfig - параметры генерации и стриминга мира
type WorldConfig struct {
	Seed            int64   `yaml:"seed"`
	TileSize        float64 `yaml:"tile_size"`
	ChunkSide       int     `yaml:"chunk_side"`
	RenderDistance  int     `yaml:"render_distance"`
	TerrainMode     string  `yaml:"terrain_mode"`
	NoiseScale      float64 `yaml:"noise_scale"`
	ChunkChance     float64 `yaml:"chunk_chance"`
	DecorationSlots int     `yaml:"decoration_slots"`
	HitboxFraction  float64 `yaml:"hitbox_fraction"`
}

// DecorationConfig - запись палитры декораций
type DecorationConfig struct {
	Type             string  `yaml:"type"`
	Scale            float64 `yaml:"scale"`
	Solid            bool    `yaml:"solid"`
	Weight           float64 `yaml:"weight"`
	SpawnProbability float64 `yaml:"spawn_probability"`
	Alpha            float64 `yaml:"alpha"`
	BaseSize         float64 `yaml:"base_size"`
}

type ServerConfig struct {
	InspectPort int  `yaml:"inspect_port"`
	Enabled     bool `yaml:"enabled"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

// MaxTickRate - верхняя граница tick_rate (тиков в секунду)
const MaxTickRate = 1000

// SimulationConfig - сценарий движения опорной точки
type SimulationConfig struct {
	TickRate int     `yaml:"tick_rate"` // Тиков в секунду
	Path     string  `yaml:"path"`      // line, circle, teleport
	Speed    float64 `yaml:"speed"`     // Мировых единиц в секунду
	Radius   float64 `yaml:"radius"`    // Для path=circle
	Jump     float64 `yaml:"jump"`      // Для path=teleport
	StartX   float64 `yaml:"start_x"`
	StartY   float64 `yaml:"start_y"`
}

// TickInterval возвращает длительность одного тика
func (s SimulationConfig) TickInterval() time.Duration {
	switch {
	case s.TickRate <= 0:
		return time.Second / 20
	case s.TickRate > MaxTickRate:
		return time.Second / MaxTickRate
	}
	return time.Second / time.Duration(s.TickRate)
}

// GetInspectPort возвращает порт inspect API с поддержкой fallback значений
func (s *ServerConfig) GetInspectPort() int {
	return getPortWithEnvFallback(s.InspectPort, "WORLD_INSPECT_PORT", 8090)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Default возвращает конфигурацию эталонного мира
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Seed:           42,
			TileSize:       16,
			ChunkSide:      16,
			RenderDistance: 3,
			TerrainMode:    string(world.TerrainModeHash),
			NoiseScale:     0.05,
		},
		Decorations: []DecorationConfig{
			{Type: "tree", Scale: 2, Solid: true, Weight: 5, SpawnProbability: 0.8},
			{Type: "bush", Scale: 1, Solid: false, Weight: 3, SpawnProbability: 0.6, Alpha: 0.9},
			{Type: "rock", Scale: 1.2, Solid: true, Weight: 2, SpawnProbability: 0.5},
		},
		Server: ServerConfig{Enabled: true},
		EventBus: EventBusConfig{
			Stream:    "WORLD_EVENTS",
			Retention: 24,
		},
		Telemetry: TelemetryConfig{ServiceName: "worldstream"},
		Logging: LoggingConfig{
			ConsoleLevel: "INFO",
			FileLevel:    "DEBUG",
		},
		Simulation: SimulationConfig{
			TickRate: 20,
			Path:     "line",
			Speed:    64,
			Radius:   600,
			Jump:     5000,
		},
	}
}

// Palette преобразует записи декораций в палитру мира
func (c *Config) Palette() world.Palette {
	if len(c.Decorations) == 0 {
		return nil
	}
	palette := make(world.Palette, 0, len(c.Decorations))
	for _, d := range c.Decorations {
		palette = append(palette, d.ToEntry())
	}
	return palette
}

// ToEntry преобразует запись конфигурации в запись палитры
func (d DecorationConfig) ToEntry() world.PaletteEntry {
	return world.PaletteEntry{
		Kind:             d.Type,
		Scale:            d.Scale,
		Solid:            d.Solid,
		SelectionWeight:  d.Weight,
		SpawnProbability: d.SpawnProbability,
		Alpha:            d.Alpha,
		BaseSize:         d.BaseSize,
	}
}

// WorldOptions собирает параметры менеджера чанков
func (c *Config) WorldOptions() world.Options {
	w := c.World
	return world.Options{
		Seed:            w.Seed,
		TileSize:        w.TileSize,
		ChunkSide:       w.ChunkSide,
		RenderDistance:  w.RenderDistance,
		Palette:         c.Palette(),
		TerrainMode:     world.TerrainMode(w.TerrainMode),
		NoiseScale:      w.NoiseScale,
		ChunkChance:     w.ChunkChance,
		DecorationSlots: w.DecorationSlots,
		HitboxFraction:  w.HitboxFraction,
	}
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	if err := c.WorldOptions().Validate(); err != nil {
		return fmt.Errorf("секция world: %w", err)
	}
	switch c.Simulation.Path {
	case "", "line", "circle", "teleport":
	default:
		return fmt.Errorf("секция simulation: неизвестный путь %q", c.Simulation.Path)
	}
	if c.Simulation.TickRate < 0 {
		return errors.New("секция simulation: tick_rate не может быть отрицательным")
	}
	if c.Simulation.TickRate > MaxTickRate {
		return fmt.Errorf("секция simulation: tick_rate %d больше %d", c.Simulation.TickRate, MaxTickRate)
	}
	return nil
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", пытается прочитать из ENV WORLD_CONFIG; без файла
// возвращается Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("WORLD_CONFIG")
		if path == "" {
			return cfg, nil // конфиг не задан: использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
