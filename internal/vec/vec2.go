package vec

import "math"

// Vec2 представляет 2D целочисленные координаты (чанка или глобального тайла)
type Vec2 struct {
	X, Y int
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// ChebyshevDistance возвращает расстояние "по квадрату" (max(|dx|,|dy|))
func (v Vec2) ChebyshevDistance(other Vec2) int {
	dx := v.X - other.X
	if dx < 0 {
		dx = -dx
	}
	dy := v.Y - other.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// FloorDiv делит с округлением вниз (в отличие от `/`, который округляет к нулю).
// b должно быть положительным.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && (a < 0) {
		q--
	}
	return q
}

// Границы индекса ячейки. Половина диапазона int оставляет запас для
// арифметики окрестности (center±R) без переполнения.
const (
	MaxCell = math.MaxInt / 2
	MinCell = math.MinInt / 2
)

// FloorDivFloat делит вещественную координату на положительный размер ячейки
// и возвращает целый индекс ячейки, ограниченный [MinCell, MaxCell].
// Знак индекса всегда совпадает со знаком частного.
func FloorDivFloat(a, size float64) int {
	q := math.Floor(a / size)
	switch {
	case math.IsNaN(q):
		return 0
	case q >= float64(MaxCell):
		return MaxCell
	case q <= float64(MinCell):
		return MinCell
	}
	return int(q)
}
