package world

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/annel0/worldstream/internal/logging"
	"github.com/annel0/worldstream/internal/physics"
)

// Options - параметры мира, задаваемые один раз при создании менеджера
type Options struct {
	Seed           int64
	TileSize       float64 // Размер тайла в мировых единицах
	ChunkSide      int     // Сторона чанка в тайлах
	RenderDistance int     // R: радиус загрузки в чанках
	Palette        Palette

	TerrainMode TerrainMode
	NoiseScale  float64

	// Нулевые значения заменяются значениями по умолчанию
	ChunkChance     float64
	DecorationSlots int
	HitboxFraction  float64
}

// Validate проверяет параметры
func (o Options) Validate() error {
	if o.TileSize <= 0 {
		return fmt.Errorf("размер тайла должен быть положительным, получено %v", o.TileSize)
	}
	if o.ChunkSide <= 0 {
		return fmt.Errorf("сторона чанка должна быть положительной, получено %d", o.ChunkSide)
	}
	if o.RenderDistance < 0 {
		return fmt.Errorf("дальность загрузки не может быть отрицательной, получено %d", o.RenderDistance)
	}
	if o.ChunkChance < 0 || o.ChunkChance > 1 {
		return fmt.Errorf("вероятность декора чанка %v вне [0,1]", o.ChunkChance)
	}
	if o.HitboxFraction < 0 || o.HitboxFraction > 1 {
		return fmt.Errorf("доля хитбокса %v вне [0,1]", o.HitboxFraction)
	}
	if o.DecorationSlots < 0 {
		return fmt.Errorf("количество слотов не может быть отрицательным")
	}
	return o.Palette.Validate()
}

// GenerationError - ошибка загрузки чанка. Чанк при этом остаётся выгруженным.
type GenerationError struct {
	Chunk ChunkID
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("генерация чанка (%d,%d): %v", e.Chunk.X, e.Chunk.Y, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// UpdateResult описывает изменения набора чанков за один вызов Update
type UpdateResult struct {
	Center   ChunkID
	Changed  bool // false, если центральный чанк не изменился
	Loaded   []ChunkID
	Unloaded []ChunkID
	Failed   []ChunkID
}

// Stats - накопленная статистика менеджера
type Stats struct {
	Ticks        uint64 `json:"ticks"`
	Updates      uint64 `json:"updates"` // Тики, на которых сменился центр
	Loads        uint64 `json:"loads"`
	Unloads      uint64 `json:"unloads"`
	Failures     uint64 `json:"failures"`
	Placeholders uint64 `json:"placeholders"`
}

// Option настраивает ChunkManager
type Option func(*ChunkManager)

// WithRenderer задаёт слой рендера (по умолчанию NopRenderer)
func WithRenderer(r Renderer) Option {
	return func(m *ChunkManager) { m.renderer = r }
}

// WithEventSink задаёт получателя событий жизненного цикла
func WithEventSink(s EventSink) Option {
	return func(m *ChunkManager) { m.sink = s }
}

// WithMetrics задаёт Prometheus-метрики
func WithMetrics(metrics *StreamMetrics) Option {
	return func(m *ChunkManager) { m.metrics = metrics }
}

// WithLogger задаёт логгер компонента
func WithLogger(l *logging.Logger) Option {
	return func(m *ChunkManager) { m.log = l }
}

// WithTileSource подменяет источник тайлов
func WithTileSource(src TileSource) Option {
	return func(m *ChunkManager) { m.tileSource = src }
}

// ChunkManager ведёт набор активных чанков вокруг опорной точки.
// Работает в одном потоке: все методы должны вызываться из игрового цикла.
type ChunkManager struct {
	opts       Options
	mapper     CoordinateMapper
	tileSource TileSource
	terrain    *TerrainGenerator
	placer     *DecorationPlacer
	palette    Palette
	registry   *physics.Registry

	renderer Renderer
	sink     EventSink
	metrics  *StreamMetrics
	log      *logging.Logger

	active    map[ChunkID]*Chunk
	failed    map[ChunkID]error
	center    ChunkID
	hasCenter bool
	stats     Stats
}

// NewChunkManager создаёт менеджер чанков
func NewChunkManager(opts Options, options ...Option) (*ChunkManager, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	mapper := NewCoordinateMapper(opts.TileSize, opts.ChunkSide)

	m := &ChunkManager{
		opts:     opts,
		mapper:   mapper,
		palette:  opts.Palette.Clone(),
		registry: physics.NewRegistry(),
		active:   make(map[ChunkID]*Chunk),
		failed:   make(map[ChunkID]error),
	}
	for _, o := range options {
		o(m)
	}

	if m.tileSource == nil {
		src, err := NewTileSource(opts.Seed, opts.TerrainMode, opts.NoiseScale)
		if err != nil {
			return nil, err
		}
		m.tileSource = src
	}
	if m.renderer == nil {
		m.renderer = NewNopRenderer()
	}
	if m.log == nil {
		m.log = logging.GetWorldLogger()
	}

	m.terrain = NewTerrainGenerator(mapper, m.tileSource)
	m.placer = NewDecorationPlacer(mapper)
	if opts.ChunkChance > 0 {
		m.placer.ChunkChance = opts.ChunkChance
	}
	if opts.DecorationSlots > 0 {
		m.placer.Slots = opts.DecorationSlots
	}
	if opts.HitboxFraction > 0 {
		m.placer.HitboxFraction = opts.HitboxFraction
	}

	return m, nil
}

// Update продвигает жизненный цикл чанков для опорной точки (x, y)
func (m *ChunkManager) Update(x, y float64) UpdateResult {
	start := time.Now()
	m.stats.Ticks++

	center := m.mapper.ToChunk(x, y)
	if m.hasCenter && center == m.center {
		return UpdateResult{Center: center}
	}
	m.stats.Updates++

	result := UpdateResult{Center: center, Changed: true}

	required := Neighborhood(center, m.opts.RenderDistance)
	requiredSet := make(map[ChunkID]struct{}, len(required))
	for _, id := range required {
		requiredSet[id] = struct{}{}
	}

	// Выгрузка того, что вышло из окрестности
	for _, id := range m.sortedActive() {
		if _, ok := requiredSet[id]; ok {
			continue
		}
		m.unloadChunk(m.active[id])
		result.Unloaded = append(result.Unloaded, id)
	}
	for id := range m.failed {
		if _, ok := requiredSet[id]; !ok {
			delete(m.failed, id)
		}
	}

	// Загрузка новых чанков. Упавшие на прошлых тиках тоже попадают сюда.
	for _, id := range required {
		if _, ok := m.active[id]; ok {
			continue
		}
		if err := m.loadChunk(id); err != nil {
			m.failed[id] = err
			result.Failed = append(result.Failed, id)
			continue
		}
		delete(m.failed, id)
		result.Loaded = append(result.Loaded, id)
	}

	m.center = center
	m.hasCenter = true

	m.log.Debug("Центр (%d,%d): загружено %d, выгружено %d, ошибок %d, активно %d",
		center.X, center.Y, len(result.Loaded), len(result.Unloaded), len(result.Failed), len(m.active))
	m.metrics.observe(start, len(m.active), m.registry.Count())

	return result
}

// ActiveObstacles возвращает представление реестра коллизий только для чтения
func (m *ChunkManager) ActiveObstacles() physics.ObstacleView {
	return m.registry
}

// SetPalette заменяет правила декора. Действует только на чанки,
// загруженные после вызова.
func (m *ChunkManager) SetPalette(p Palette) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.palette = p.Clone()
	m.log.Info("Палитра декораций заменена: %d записей", len(p))
	return nil
}

// Palette возвращает копию текущей палитры
func (m *ChunkManager) Palette() Palette {
	return m.palette.Clone()
}

// ClearAll принудительно выгружает все чанки и забывает центр.
// Возвращает количество выгруженных чанков.
func (m *ChunkManager) ClearAll() int {
	ids := m.sortedActive()
	for _, id := range ids {
		m.unloadChunk(m.active[id])
	}
	m.failed = make(map[ChunkID]error)
	m.hasCenter = false
	m.center = ChunkID{}

	m.metrics.setActive(0, m.registry.Count())
	m.log.Info("Все чанки выгружены: %d", len(ids))
	return len(ids)
}

// loadChunk синхронно проводит чанк Unloaded → Loading → Loaded.
// При любой ошибке всё выданное откатывается и чанк остаётся Unloaded.
func (m *ChunkManager) loadChunk(id ChunkID) (err error) {
	chunk := &Chunk{ID: id, State: StateLoading, LoadedAt: m.stats.Ticks}

	defer func() {
		if r := recover(); r != nil {
			err = &GenerationError{Chunk: id, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			m.rollback(chunk)
			m.stats.Failures++
			m.metrics.chunkFailed()
			m.log.Error("Не удалось загрузить чанк (%d,%d): %v", id.X, id.Y, err)
			m.emit(ChunkEvent{Type: EventChunkFailed, Chunk: id, Tick: m.stats.Ticks, Err: err})
		}
	}()

	chunk.Tiles = m.terrain.GenerateGrid(id)
	chunk.Decorations = m.placer.DecorationsFor(m.opts.Seed, id, m.palette)

	bounds := m.mapper.ChunkBounds(id)
	chunk.terrainHandle, err = m.acquire(chunk, "terrain", bounds, func() (ResourceHandle, error) {
		return m.renderer.CreateTerrain(id, chunk.Tiles)
	})
	if err != nil {
		return &GenerationError{Chunk: id, Err: err}
	}

	for i := range chunk.Decorations {
		d := &chunk.Decorations[i]
		d.Handle, err = m.acquire(chunk, d.Kind, d.Bounds, func() (ResourceHandle, error) {
			return m.renderer.CreateDecoration(d)
		})
		if err != nil {
			return &GenerationError{Chunk: id, Err: err}
		}
		if d.Solid {
			d.ObstacleID = m.registry.Register(id, d.Kind, d.Hitbox)
		}
	}

	chunk.State = StateLoaded
	m.active[id] = chunk
	m.stats.Loads++
	m.metrics.chunkLoaded()
	m.log.LogChunkLoad(id.X, id.Y, len(chunk.Decorations), chunk.Obstacles())
	m.emit(ChunkEvent{
		Type:        EventChunkLoaded,
		Chunk:       id,
		Tick:        m.stats.Ticks,
		Decorations: len(chunk.Decorations),
		Obstacles:   chunk.Obstacles(),
	})
	return nil
}

// acquire запрашивает ресурс рендера; недоступный ассет заменяется заглушкой
func (m *ChunkManager) acquire(chunk *Chunk, kind string, bounds physics.Rect, create func() (ResourceHandle, error)) (ResourceHandle, error) {
	h, err := create()
	if err == nil {
		return h, nil
	}
	if !errors.Is(err, ErrMissingVisualAsset) {
		return NoHandle, err
	}

	m.log.Warn("Нет ресурса %q для чанка (%d,%d), используется заглушка: %v",
		kind, chunk.ID.X, chunk.ID.Y, err)
	chunk.placeholders++
	m.stats.Placeholders++
	m.metrics.placeholderUsed()
	return m.renderer.CreatePlaceholder(kind, bounds), nil
}

// rollback освобождает всё, что успела выдать неудачная загрузка
func (m *ChunkManager) rollback(chunk *Chunk) {
	m.releaseResources(chunk)
	chunk.State = StateUnloaded
}

// unloadChunk синхронно проводит чанк Loaded → Unloading → Unloaded
func (m *ChunkManager) unloadChunk(chunk *Chunk) {
	chunk.State = StateUnloading
	released := m.releaseResources(chunk)
	delete(m.active, chunk.ID)
	chunk.State = StateUnloaded

	m.stats.Unloads++
	m.metrics.chunkUnloaded()
	m.log.LogChunkUnload(chunk.ID.X, chunk.ID.Y, released)
	m.emit(ChunkEvent{
		Type:        EventChunkUnloaded,
		Chunk:       chunk.ID,
		Tick:        m.stats.Ticks,
		Decorations: len(chunk.Decorations),
		Obstacles:   released,
	})
}

// releaseResources уничтожает ресурсы рендера чанка и освобождает его формы
// в реестре одним вызовом. Возвращает количество освобождённых форм.
func (m *ChunkManager) releaseResources(chunk *Chunk) int {
	for i := range chunk.Decorations {
		d := &chunk.Decorations[i]
		if d.Handle != NoHandle {
			m.renderer.Destroy(d.Handle)
			d.Handle = NoHandle
		}
		d.ObstacleID = 0
	}
	if chunk.terrainHandle != NoHandle {
		m.renderer.Destroy(chunk.terrainHandle)
		chunk.terrainHandle = NoHandle
	}
	return m.registry.ReleaseAll(chunk.ID)
}

func (m *ChunkManager) emit(ev ChunkEvent) {
	if m.sink != nil {
		m.sink.OnChunkEvent(ev)
	}
}

// sortedActive возвращает ID активных чанков в детерминированном порядке
func (m *ChunkManager) sortedActive() []ChunkID {
	ids := make([]ChunkID, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	sortChunkIDs(ids)
	return ids
}

func sortChunkIDs(ids []ChunkID) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Y != ids[j].Y {
			return ids[i].Y < ids[j].Y
		}
		return ids[i].X < ids[j].X
	})
}

// ActiveChunks возвращает ID активных чанков построчно
func (m *ChunkManager) ActiveChunks() []ChunkID {
	return m.sortedActive()
}

// Chunk возвращает активный чанк по ID
func (m *ChunkManager) Chunk(id ChunkID) (*Chunk, bool) {
	c, ok := m.active[id]
	return c, ok
}

// IsActive сообщает, загружен ли чанк
func (m *ChunkManager) IsActive(id ChunkID) bool {
	_, ok := m.active[id]
	return ok
}

// Center возвращает текущий центральный чанк; false, если Update ещё не вызывался
func (m *ChunkManager) Center() (ChunkID, bool) {
	return m.center, m.hasCenter
}

// Failed возвращает копию чанков окрестности, генерация которых не удалась
func (m *ChunkManager) Failed() map[ChunkID]error {
	result := make(map[ChunkID]error, len(m.failed))
	for id, err := range m.failed {
		result[id] = err
	}
	return result
}

// FailedChunks возвращает упавшие чанки окрестности в порядке ActiveChunks
func (m *ChunkManager) FailedChunks() []ChunkID {
	ids := make([]ChunkID, 0, len(m.failed))
	for id := range m.failed {
		ids = append(ids, id)
	}
	sortChunkIDs(ids)
	return ids
}

// Stats возвращает накопленную статистику
func (m *ChunkManager) Stats() Stats {
	return m.stats
}

// Mapper возвращает преобразователь координат мира
func (m *ChunkManager) Mapper() CoordinateMapper {
	return m.mapper
}

// Options возвращает параметры мира
func (m *ChunkManager) Options() Options {
	return m.opts
}
