package world

import (
	"errors"

	"github.com/annel0/worldstream/internal/physics"
)

// ResourceHandle - непрозрачный идентификатор ресурса рендера
type ResourceHandle uint64

// NoHandle - отсутствие ресурса
const NoHandle ResourceHandle = 0

// ErrMissingVisualAsset сообщает, что визуальный ресурс недоступен.
// Менеджер чанков заменяет такой ресурс заглушкой и продолжает работу.
var ErrMissingVisualAsset = errors.New("визуальный ресурс недоступен")

// Renderer - внешний слой рендера. Менеджер чанков вызывает его синхронно
// при загрузке и выгрузке; каждый выданный handle уничтожается ровно один раз.
type Renderer interface {
	CreateTerrain(id ChunkID, tiles *TileGrid) (ResourceHandle, error)
	CreateDecoration(d *Decoration) (ResourceHandle, error)
	CreatePlaceholder(kind string, bounds physics.Rect) ResourceHandle
	Destroy(h ResourceHandle)
}

// NopRenderer - рендер без вывода для серверного режима и тестов.
// Ведёт учёт живых ресурсов, чтобы можно было ловить утечки и
// повторные освобождения.
type NopRenderer struct {
	next        ResourceHandle
	live        map[ResourceHandle]string
	doubleFrees int
}

// NewNopRenderer создаёт рендер без вывода
func NewNopRenderer() *NopRenderer {
	return &NopRenderer{
		live: make(map[ResourceHandle]string),
	}
}

func (r *NopRenderer) alloc(kind string) ResourceHandle {
	r.next++
	r.live[r.next] = kind
	return r.next
}

// CreateTerrain выдаёт handle ландшафта
func (r *NopRenderer) CreateTerrain(id ChunkID, tiles *TileGrid) (ResourceHandle, error) {
	return r.alloc("terrain"), nil
}

// CreateDecoration выдаёт handle декорации
func (r *NopRenderer) CreateDecoration(d *Decoration) (ResourceHandle, error) {
	return r.alloc(d.Kind), nil
}

// CreatePlaceholder выдаёт handle заглушки
func (r *NopRenderer) CreatePlaceholder(kind string, bounds physics.Rect) ResourceHandle {
	return r.alloc("placeholder:" + kind)
}

// Destroy освобождает handle
func (r *NopRenderer) Destroy(h ResourceHandle) {
	if _, ok := r.live[h]; !ok {
		r.doubleFrees++
		return
	}
	delete(r.live, h)
}

// Live возвращает количество неосвобождённых ресурсов
func (r *NopRenderer) Live() int {
	return len(r.live)
}

// DoubleFrees возвращает количество попыток освободить неизвестный handle
func (r *NopRenderer) DoubleFrees() int {
	return r.doubleFrees
}
