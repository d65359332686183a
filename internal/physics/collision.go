package physics

// Rect - осевой прямоугольник (AABB) в мировых единицах.
// Max-границы не входят в прямоугольник.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// RectFromCenter создаёт прямоугольник с центром (cx, cy) и размерами w x h
func RectFromCenter(cx, cy, w, h float64) Rect {
	return Rect{
		MinX: cx - w/2,
		MinY: cy - h/2,
		MaxX: cx + w/2,
		MaxY: cy + h/2,
	}
}

// Width возвращает ширину прямоугольника
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height возвращает высоту прямоугольника
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Center возвращает центр прямоугольника
func (r Rect) Center() (float64, float64) {
	return (r.MinX + r.MaxX) / 2, (r.MinY + r.MaxY) / 2
}

// Shrink возвращает прямоугольник с тем же центром, уменьшенный до доли fraction
func (r Rect) Shrink(fraction float64) Rect {
	cx, cy := r.Center()
	return RectFromCenter(cx, cy, r.Width()*fraction, r.Height()*fraction)
}

// ContainsPoint проверяет, находится ли точка внутри прямоугольника
func (r Rect) ContainsPoint(x, y float64) bool {
	return x >= r.MinX && x < r.MaxX && y >= r.MinY && y < r.MaxY
}

// Contains проверяет, что other целиком лежит внутри r
func (r Rect) Contains(other Rect) bool {
	return other.MinX >= r.MinX && other.MaxX <= r.MaxX &&
		other.MinY >= r.MinY && other.MaxY <= r.MaxY
}

// Overlaps проверяет пересечение двух прямоугольников
func Overlaps(a, b Rect) bool {
	return a.MaxX > b.MinX &&
		a.MinX < b.MaxX &&
		a.MaxY > b.MinY &&
		a.MinY < b.MaxY
}
