package app

import (
	"time"

	"github.com/annel0/worldstream/internal/world"
)

// Point - координата в мировых единицах
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ChunkRef - координаты чанка
type ChunkRef struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ChunkInfo - сводка по активному чанку
type ChunkInfo struct {
	ChunkRef
	State        string         `json:"state"`
	LoadedAt     uint64         `json:"loaded_at"`
	Decorations  int            `json:"decorations"`
	Obstacles    int            `json:"obstacles"`
	Placeholders int            `json:"placeholders"`
	Tiles        map[string]int `json:"tiles"`
}

// ObstacleInfo - хитбокс в реестре коллизий
type ObstacleInfo struct {
	ID    uint64   `json:"id"`
	Chunk ChunkRef `json:"chunk"`
	Kind  string   `json:"kind"`
	MinX  float64  `json:"min_x"`
	MinY  float64  `json:"min_y"`
	MaxX  float64  `json:"max_x"`
	MaxY  float64  `json:"max_y"`
}

// Snapshot - неизменяемый срез состояния мира после тика.
// Публикуется атомарно и читается без блокировок.
type Snapshot struct {
	SessionID string         `json:"session_id"`
	Tick      uint64         `json:"tick"`
	UpdatedAt time.Time      `json:"updated_at"`
	Position  Point          `json:"position"`
	Center    ChunkRef       `json:"center"`
	Chunks    []ChunkInfo    `json:"chunks"`
	Obstacles []ObstacleInfo `json:"obstacles"`
	Failed    []ChunkRef     `json:"failed"`
	Stats     world.Stats    `json:"stats"`
	Palette   world.Palette  `json:"palette"`
}

func chunkRef(id world.ChunkID) ChunkRef {
	return ChunkRef{X: id.X, Y: id.Y}
}

// buildSnapshot снимает состояние менеджера. Вызывается только из тика.
func buildSnapshot(m *world.ChunkManager, session string, tick uint64, pos Point) *Snapshot {
	center, _ := m.Center()
	s := &Snapshot{
		SessionID: session,
		Tick:      tick,
		UpdatedAt: time.Now().UTC(),
		Position:  pos,
		Center:    chunkRef(center),
		Stats:     m.Stats(),
		Palette:   m.Palette(),
	}

	ids := m.ActiveChunks()
	s.Chunks = make([]ChunkInfo, 0, len(ids))
	for _, id := range ids {
		c, _ := m.Chunk(id)
		tiles := make(map[string]int)
		for tile, n := range c.Tiles.Histogram() {
			tiles[world.TileName(tile)] = n
		}
		s.Chunks = append(s.Chunks, ChunkInfo{
			ChunkRef:     chunkRef(id),
			State:        c.State.String(),
			LoadedAt:     c.LoadedAt,
			Decorations:  len(c.Decorations),
			Obstacles:    c.Obstacles(),
			Placeholders: c.Placeholders(),
			Tiles:        tiles,
		})
	}

	shapes := m.ActiveObstacles().AllActiveShapes()
	s.Obstacles = make([]ObstacleInfo, 0, len(shapes))
	for _, o := range shapes {
		s.Obstacles = append(s.Obstacles, ObstacleInfo{
			ID:    o.ID,
			Chunk: chunkRef(o.Chunk),
			Kind:  o.Kind,
			MinX:  o.Shape.MinX,
			MinY:  o.Shape.MinY,
			MaxX:  o.Shape.MaxX,
			MaxY:  o.Shape.MaxY,
		})
	}

	failed := m.FailedChunks()
	s.Failed = make([]ChunkRef, 0, len(failed))
	for _, id := range failed {
		s.Failed = append(s.Failed, chunkRef(id))
	}
	return s
}
