package util

import (
	"github.com/aquilax/go-perlin"
)

// Параметры шума Перлина
const (
	perlinAlpha   = 2.0 // Сглаживание шума
	perlinBeta    = 2.0 // Частота шума
	perlinOctaves = 3   // Количество октав
)

// NoiseField - поле шума Перлина для одного сида.
// После создания только читается, поэтому результат зависит лишь от координат.
type NoiseField struct {
	noise *perlin.Perlin
	scale float64
}

// NewNoiseField создаёт поле шума с указанным сидом и масштабом координат
func NewNoiseField(seed int64, scale float64) *NoiseField {
	if scale <= 0 {
		scale = 0.05
	}
	return &NoiseField{
		noise: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed),
		scale: scale,
	}
}

// Unit возвращает значение шума для целых координат в диапазоне [0, 1)
func (f *NoiseField) Unit(x, y int) float64 {
	// Noise2D возвращает примерно [-1, 1]
	n := f.noise.Noise2D(float64(x)*f.scale, float64(y)*f.scale)
	v := (n + 1.0) / 2.0
	switch {
	case v < 0:
		return 0
	case v >= 1:
		return 0.999999
	}
	return v
}
