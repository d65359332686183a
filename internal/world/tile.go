package world

// TileID представляет идентификатор типа тайла
type TileID uint16

// Константы ID тайлов (нумерация совпадает с каталогом блоков клиента)
const (
	TileVoid    TileID = 0 // Нет тайла (не генерируется)
	TileStone   TileID = 1
	TileGrass   TileID = 2
	TileWater   TileID = 3
	TileSand    TileID = 4
	TileDirt    TileID = 5
	TileFlowers TileID = 100 // Декоративная трава с цветами
)

// tileWeight - вес типа тайла в таблице генерации
type tileWeight struct {
	id     TileID
	weight float64
}

// Таблица весов тайлов. Порядок важен: по нему строятся накопленные веса,
// и его изменение меняет весь сгенерированный мир.
var tileWeights = []tileWeight{
	{TileWater, 0.12},
	{TileSand, 0.08},
	{TileGrass, 0.45},
	{TileDirt, 0.15},
	{TileStone, 0.12},
	{TileFlowers, 0.08},
}

// cumulativeTiles - накопленные веса, нормированные к 1
var cumulativeTiles = buildCumulative(tileWeights)

type cumulativeEntry struct {
	id    TileID
	upper float64
}

func buildCumulative(weights []tileWeight) []cumulativeEntry {
	total := 0.0
	for _, w := range weights {
		total += w.weight
	}

	result := make([]cumulativeEntry, 0, len(weights))
	acc := 0.0
	for _, w := range weights {
		acc += w.weight / total
		result = append(result, cumulativeEntry{id: w.id, upper: acc})
	}
	return result
}

// TileFromUnit отображает значение из [0, 1) на тип тайла по таблице весов
func TileFromUnit(u float64) TileID {
	for _, e := range cumulativeTiles {
		if u < e.upper {
			return e.id
		}
	}
	// Ошибки округления у верхней границы
	return cumulativeTiles[len(cumulativeTiles)-1].id
}

// TileName возвращает имя тайла для отладочного вывода
func TileName(id TileID) string {
	switch id {
	case TileStone:
		return "stone"
	case TileGrass:
		return "grass"
	case TileWater:
		return "water"
	case TileSand:
		return "sand"
	case TileDirt:
		return "dirt"
	case TileFlowers:
		return "flowers"
	default:
		return "void"
	}
}

// TileGrid - квадратная сетка тайлов одного чанка, индекс [y*Side+x]
type TileGrid struct {
	Side  int
	Tiles []TileID
}

// NewTileGrid создаёт пустую сетку side x side
func NewTileGrid(side int) *TileGrid {
	return &TileGrid{
		Side:  side,
		Tiles: make([]TileID, side*side),
	}
}

// At возвращает тайл по локальным координатам
func (g *TileGrid) At(lx, ly int) TileID {
	return g.Tiles[ly*g.Side+lx]
}

// Set устанавливает тайл по локальным координатам
func (g *TileGrid) Set(lx, ly int, id TileID) {
	g.Tiles[ly*g.Side+lx] = id
}

// Histogram возвращает количество тайлов каждого типа
func (g *TileGrid) Histogram() map[TileID]int {
	result := make(map[TileID]int)
	for _, id := range g.Tiles {
		result[id]++
	}
	return result
}
