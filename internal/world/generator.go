package world

import (
	"fmt"

	"github.com/annel0/worldstream/internal/util"
)

// TerrainMode определяет способ вычисления типа тайла
type TerrainMode string

const (
	TerrainModeHash  TerrainMode = "hash"  // Хэш координат (по умолчанию)
	TerrainModeNoise TerrainMode = "noise" // Шум Перлина
)

// TileAt возвращает тип тайла для глобальных координат. Результат зависит
// только от (seed, gx, gy): порядок вызовов и границы чанков не важны.
func TileAt(seed int64, gx, gy int) TileID {
	return TileFromUnit(util.DeterministicUnit(seed, gx, gy))
}

// TileSource - источник типов тайлов по глобальным координатам
type TileSource interface {
	TileAt(gx, gy int) TileID
}

// hashSource - источник на основе TileAt
type hashSource struct {
	seed int64
}

func (s hashSource) TileAt(gx, gy int) TileID {
	return TileAt(s.seed, gx, gy)
}

// noiseSource - источник на основе шума Перлина; значение шума проходит
// через ту же таблицу весов, что и хэш
type noiseSource struct {
	field *util.NoiseField
}

func (s noiseSource) TileAt(gx, gy int) TileID {
	return TileFromUnit(s.field.Unit(gx, gy))
}

// NewTileSource создаёт источник тайлов для указанного режима
func NewTileSource(seed int64, mode TerrainMode, noiseScale float64) (TileSource, error) {
	switch mode {
	case "", TerrainModeHash:
		return hashSource{seed: seed}, nil
	case TerrainModeNoise:
		return noiseSource{field: util.NewNoiseField(seed, noiseScale)}, nil
	default:
		return nil, fmt.Errorf("неизвестный режим генерации ландшафта %q", mode)
	}
}

// TerrainGenerator строит сетку тайлов чанка
type TerrainGenerator struct {
	mapper CoordinateMapper
	source TileSource
}

// NewTerrainGenerator создаёт генератор ландшафта
func NewTerrainGenerator(mapper CoordinateMapper, source TileSource) *TerrainGenerator {
	return &TerrainGenerator{
		mapper: mapper,
		source: source,
	}
}

// TileAt возвращает тип тайла для глобальных координат
func (g *TerrainGenerator) TileAt(gx, gy int) TileID {
	return g.source.TileAt(gx, gy)
}

// GenerateGrid вычисляет TileAt для каждого глобального тайла внутри чанка
func (g *TerrainGenerator) GenerateGrid(c ChunkID) *TileGrid {
	side := g.mapper.ChunkSide
	grid := NewTileGrid(side)
	first := g.mapper.FirstTile(c)

	for ly := 0; ly < side; ly++ {
		for lx := 0; lx < side; lx++ {
			grid.Set(lx, ly, g.source.TileAt(first.X+lx, first.Y+ly))
		}
	}
	return grid
}
