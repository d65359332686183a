package world

import (
	"errors"
	"fmt"

	"github.com/annel0/worldstream/internal/physics"
	"github.com/annel0/worldstream/internal/util"
	"github.com/annel0/worldstream/internal/vec"
)

// Параметры размещения декораций по умолчанию
const (
	DefaultChunkChance    = 0.15 // Доля чанков, в которых вообще есть декорации
	DefaultSlots          = 4    // Максимум декораций на чанк
	DefaultHitboxFraction = 0.6  // Доля визуального размера, занятая хитбоксом
)

// Соли для DeterministicUnit. Меняют мир, поэтому фиксированы.
const (
	saltGate = 0x6A7E
	saltSlot = 0x5107
)

// Индексы значений внутри слота
const (
	slotPick = iota
	slotSpawn
	slotPosX
	slotPosY
)

// ErrInvalidPalette возвращается при некорректной палитре декораций
var ErrInvalidPalette = errors.New("некорректная палитра декораций")

// PaletteEntry описывает один вид декорации
type PaletteEntry struct {
	Kind             string  `json:"type"`                // Тип декорации (tree, rock, bush...)
	Scale            float64 `json:"scale"`               // Визуальный масштаб
	Solid            bool    `json:"solid"`               // Является ли препятствием
	SelectionWeight  float64 `json:"weight"`              // Вес при выборе из палитры
	SpawnProbability float64 `json:"spawn_probability"`   // Вероятность появления в выбранном слоте
	Alpha            float64 `json:"alpha,omitempty"`     // Прозрачность; 0 трактуется как 1
	BaseSize         float64 `json:"base_size,omitempty"` // Размер спрайта при масштабе 1; 0 - размер тайла
}

// Palette - набор правил размещения декораций
type Palette []PaletteEntry

// Validate проверяет палитру
func (p Palette) Validate() error {
	for i, e := range p {
		if e.Kind == "" {
			return fmt.Errorf("%w: запись %d без типа", ErrInvalidPalette, i)
		}
		if e.SelectionWeight < 0 {
			return fmt.Errorf("%w: %s: отрицательный вес %.3f", ErrInvalidPalette, e.Kind, e.SelectionWeight)
		}
		if e.SpawnProbability < 0 || e.SpawnProbability > 1 {
			return fmt.Errorf("%w: %s: вероятность %.3f вне [0,1]", ErrInvalidPalette, e.Kind, e.SpawnProbability)
		}
		if e.Scale <= 0 {
			return fmt.Errorf("%w: %s: масштаб должен быть положительным", ErrInvalidPalette, e.Kind)
		}
		if e.Alpha < 0 || e.Alpha > 1 {
			return fmt.Errorf("%w: %s: прозрачность %.3f вне [0,1]", ErrInvalidPalette, e.Kind, e.Alpha)
		}
		if e.BaseSize < 0 {
			return fmt.Errorf("%w: %s: отрицательный размер спрайта", ErrInvalidPalette, e.Kind)
		}
	}
	return nil
}

// Clone возвращает независимую копию палитры
func (p Palette) Clone() Palette {
	if p == nil {
		return nil
	}
	result := make(Palette, len(p))
	copy(result, p)
	return result
}

func (p Palette) totalWeight() float64 {
	total := 0.0
	for _, e := range p {
		total += e.SelectionWeight
	}
	return total
}

// pick выбирает запись по весу; u из [0, 1)
func (p Palette) pick(u float64) (PaletteEntry, bool) {
	total := p.totalWeight()
	if total <= 0 {
		return PaletteEntry{}, false
	}

	target := u * total
	acc := 0.0
	for _, e := range p {
		if e.SelectionWeight <= 0 {
			continue
		}
		acc += e.SelectionWeight
		if target < acc {
			return e, true
		}
	}

	// Ошибки округления: последняя запись с положительным весом
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].SelectionWeight > 0 {
			return p[i], true
		}
	}
	return PaletteEntry{}, false
}

// Transform - положение и масштаб декорации
type Transform struct {
	Position vec.Vec2Float // Центр в мировых координатах
	Scale    float64
}

// Decoration - размещённый объект декора, принадлежащий ровно одному чанку
type Decoration struct {
	Kind       string
	Chunk      ChunkID
	Slot       int
	Transform  Transform
	Alpha      float64
	Solid      bool
	Bounds     physics.Rect   // Визуальный след
	Hitbox     physics.Rect   // Хитбокс (только для Solid)
	Handle     ResourceHandle // Ресурс рендера, выданный при загрузке
	ObstacleID uint64         // ID формы в реестре коллизий (только для Solid)
}

// DecorationPlacer решает, какие декорации и где появятся в чанке
type DecorationPlacer struct {
	mapper         CoordinateMapper
	ChunkChance    float64
	Slots          int
	HitboxFraction float64
}

// NewDecorationPlacer создаёт размещатель с параметрами по умолчанию
func NewDecorationPlacer(mapper CoordinateMapper) *DecorationPlacer {
	return &DecorationPlacer{
		mapper:         mapper,
		ChunkChance:    DefaultChunkChance,
		Slots:          DefaultSlots,
		HitboxFraction: DefaultHitboxFraction,
	}
}

// ShouldDecorate возвращает true, если в чанке вообще появятся декорации.
// Пустая палитра всегда даёт false.
func (p *DecorationPlacer) ShouldDecorate(seed int64, c ChunkID, palette Palette) bool {
	if len(palette) == 0 || palette.totalWeight() <= 0 {
		return false
	}
	return util.DeterministicUnit(seed, c.X, c.Y, saltGate) < p.ChunkChance
}

// DecorationsFor возвращает декорации чанка. Результат зависит только от
// (seed, c, palette).
func (p *DecorationPlacer) DecorationsFor(seed int64, c ChunkID, palette Palette) []Decoration {
	if !p.ShouldDecorate(seed, c, palette) {
		return nil
	}

	origin := p.mapper.ChunkOrigin(c)
	size := p.mapper.ChunkWorldSize()

	var result []Decoration
	for slot := 0; slot < p.Slots; slot++ {
		salt := saltSlot + slot

		entry, ok := palette.pick(util.DeterministicUnit(seed, c.X, c.Y, salt, slotPick))
		if !ok {
			continue
		}
		if util.DeterministicUnit(seed, c.X, c.Y, salt, slotSpawn) >= entry.SpawnProbability {
			continue
		}

		pos := vec.Vec2Float{
			X: origin.X + util.DeterministicUnit(seed, c.X, c.Y, salt, slotPosX)*size,
			Y: origin.Y + util.DeterministicUnit(seed, c.X, c.Y, salt, slotPosY)*size,
		}

		result = append(result, p.build(entry, c, slot, pos))
	}
	return result
}

// build собирает экземпляр декорации из записи палитры
func (p *DecorationPlacer) build(entry PaletteEntry, c ChunkID, slot int, pos vec.Vec2Float) Decoration {
	base := entry.BaseSize
	if base <= 0 {
		base = p.mapper.TileSize
	}
	alpha := entry.Alpha
	if alpha <= 0 {
		alpha = 1
	}

	footprint := base * entry.Scale
	bounds := physics.RectFromCenter(pos.X, pos.Y, footprint, footprint)

	d := Decoration{
		Kind:      entry.Kind,
		Chunk:     c,
		Slot:      slot,
		Transform: Transform{Position: pos, Scale: entry.Scale},
		Alpha:     alpha,
		Solid:     entry.Solid,
		Bounds:    bounds,
	}
	if entry.Solid {
		d.Hitbox = bounds.Shrink(p.HitboxFraction)
	}
	return d
}
