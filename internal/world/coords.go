package world

import (
	"github.com/annel0/worldstream/internal/physics"
	"github.com/annel0/worldstream/internal/vec"
)

// ChunkID - координаты чанка (cx, cy)
type ChunkID = vec.Vec2

// CoordinateMapper переводит мировые координаты в индексы чанков и тайлов.
// Все методы чистые.
type CoordinateMapper struct {
	TileSize  float64 // Размер тайла в мировых единицах
	ChunkSide int     // Сторона чанка в тайлах
}

// NewCoordinateMapper создаёт преобразователь координат
func NewCoordinateMapper(tileSize float64, chunkSide int) CoordinateMapper {
	return CoordinateMapper{TileSize: tileSize, ChunkSide: chunkSide}
}

// ChunkWorldSize возвращает сторону чанка в мировых единицах
func (m CoordinateMapper) ChunkWorldSize() float64 {
	return m.TileSize * float64(m.ChunkSide)
}

// ToChunk возвращает чанк, содержащий мировую точку (x, y)
func (m CoordinateMapper) ToChunk(x, y float64) ChunkID {
	size := m.ChunkWorldSize()
	return ChunkID{X: vec.FloorDivFloat(x, size), Y: vec.FloorDivFloat(y, size)}
}

// ToGlobalTile возвращает глобальный индекс тайла для мировой точки (x, y)
func (m CoordinateMapper) ToGlobalTile(x, y float64) vec.Vec2 {
	return vec.Vec2{X: vec.FloorDivFloat(x, m.TileSize), Y: vec.FloorDivFloat(y, m.TileSize)}
}

// FirstTile возвращает глобальный индекс левого верхнего тайла чанка
func (m CoordinateMapper) FirstTile(c ChunkID) vec.Vec2 {
	return vec.Vec2{X: c.X * m.ChunkSide, Y: c.Y * m.ChunkSide}
}

// TileToChunk возвращает чанк, которому принадлежит глобальный тайл
func (m CoordinateMapper) TileToChunk(tile vec.Vec2) ChunkID {
	return ChunkID{X: vec.FloorDiv(tile.X, m.ChunkSide), Y: vec.FloorDiv(tile.Y, m.ChunkSide)}
}

// ChunkOrigin возвращает мировые координаты левого верхнего угла чанка
func (m CoordinateMapper) ChunkOrigin(c ChunkID) vec.Vec2Float {
	size := m.ChunkWorldSize()
	return vec.Vec2Float{X: float64(c.X) * size, Y: float64(c.Y) * size}
}

// ChunkBounds возвращает границы чанка в мировых координатах
func (m CoordinateMapper) ChunkBounds(c ChunkID) physics.Rect {
	origin := m.ChunkOrigin(c)
	size := m.ChunkWorldSize()
	return physics.Rect{
		MinX: origin.X,
		MinY: origin.Y,
		MaxX: origin.X + size,
		MaxY: origin.Y + size,
	}
}

// Neighborhood возвращает квадрат (2r+1)x(2r+1) чанков вокруг center,
// построчно сверху вниз
func Neighborhood(center ChunkID, r int) []ChunkID {
	side := 2*r + 1
	result := make([]ChunkID, 0, side*side)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			result = append(result, ChunkID{X: center.X + dx, Y: center.Y + dy})
		}
	}
	return result
}
