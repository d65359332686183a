package physics

import (
	"sort"

	"github.com/annel0/worldstream/internal/vec"
)

// Obstacle - твёрдая форма, зарегистрированная от имени чанка
type Obstacle struct {
	ID    uint64   // Уникальный в пределах реестра идентификатор
	Chunk vec.Vec2 // Чанк-владелец
	Kind  string   // Тип декорации, породившей форму
	Shape Rect     // Хитбокс в мировых координатах
}

// ObstacleView - интерфейс только для чтения, который отдаётся внешним
// потребителям (broad-phase физики, AI, рендер).
type ObstacleView interface {
	AllActiveShapes() []Obstacle
	QueryRect(area Rect) []Obstacle
	Count() int
}

// Registry хранит активные твёрдые формы, сгруппированные по чанкам.
// Изменяется только менеджером жизненного цикла чанков, из одного потока,
// поэтому не содержит блокировок.
type Registry struct {
	byChunk map[vec.Vec2][]Obstacle
	count   int
	nextID  uint64
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{
		byChunk: make(map[vec.Vec2][]Obstacle),
		nextID:  1,
	}
}

// Register добавляет форму для чанка и возвращает её ID
func (r *Registry) Register(chunk vec.Vec2, kind string, shape Rect) uint64 {
	id := r.nextID
	r.nextID++

	r.byChunk[chunk] = append(r.byChunk[chunk], Obstacle{
		ID:    id,
		Chunk: chunk,
		Kind:  kind,
		Shape: shape,
	})
	r.count++
	return id
}

// ReleaseAll удаляет все формы чанка за один вызов и возвращает их количество.
// Другие чанки не просматриваются.
func (r *Registry) ReleaseAll(chunk vec.Vec2) int {
	shapes, exists := r.byChunk[chunk]
	if !exists {
		return 0
	}
	delete(r.byChunk, chunk)
	r.count -= len(shapes)
	return len(shapes)
}

// ShapesOf возвращает копию форм одного чанка
func (r *Registry) ShapesOf(chunk vec.Vec2) []Obstacle {
	shapes := r.byChunk[chunk]
	result := make([]Obstacle, len(shapes))
	copy(result, shapes)
	return result
}

// AllActiveShapes возвращает копию всех активных форм, отсортированную по ID
func (r *Registry) AllActiveShapes() []Obstacle {
	result := make([]Obstacle, 0, r.count)
	for _, shapes := range r.byChunk {
		result = append(result, shapes...)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// QueryRect возвращает формы, пересекающие область
func (r *Registry) QueryRect(area Rect) []Obstacle {
	var result []Obstacle
	for _, shapes := range r.byChunk {
		for _, o := range shapes {
			if Overlaps(o.Shape, area) {
				result = append(result, o)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Count возвращает общее количество активных форм
func (r *Registry) Count() int {
	return r.count
}

// ChunkCount возвращает количество чанков, у которых есть хотя бы одна форма
func (r *Registry) ChunkCount() int {
	return len(r.byChunk)
}
