package world

// ChunkState - состояние чанка в жизненном цикле
type ChunkState uint8

const (
	StateUnloaded  ChunkState = iota // Начальное и конечное состояние
	StateLoading                     // Генерация и выдача ресурсов
	StateLoaded                      // Чанк активен
	StateUnloading                   // Освобождение ресурсов
)

// String возвращает строковое представление состояния
func (s ChunkState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateUnloading:
		return "unloading"
	default:
		return "unknown"
	}
}

// Chunk - единица загрузки мира. Существует только в состоянии Loaded:
// частично загруженный чанк никогда не попадает в активный набор.
type Chunk struct {
	ID          ChunkID
	Tiles       *TileGrid
	Decorations []Decoration
	State       ChunkState
	LoadedAt    uint64 // Номер тика, на котором чанк загружен

	terrainHandle ResourceHandle
	placeholders  int
}

// Obstacles возвращает количество твёрдых декораций чанка
func (c *Chunk) Obstacles() int {
	n := 0
	for i := range c.Decorations {
		if c.Decorations[i].Solid {
			n++
		}
	}
	return n
}

// Placeholders возвращает количество ресурсов, заменённых заглушками
func (c *Chunk) Placeholders() int {
	return c.placeholders
}

// TerrainHandle возвращает ресурс рендера ландшафта
func (c *Chunk) TerrainHandle() ResourceHandle {
	return c.terrainHandle
}
