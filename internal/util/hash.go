package util

import (
	"math"
	"math/bits"
)

// Константы смешивания. Большие нечётные простые разводят оси,
// чтобы (x, y) и (y, x) давали разные значения.
const (
	seedPrime = 0x9E3779B97F4A7C15
	sineScale = 43758.5453123
)

var axisPrimes = [...]uint64{
	73856093,
	19349663,
	83492791,
	2654435761,
	2246822519,
}

// Combine сворачивает сид и набор целых в одно 64-битное значение
// умножением на большие простые и XOR. Порядок аргументов значим.
func Combine(seed int64, values ...int) uint64 {
	h := uint64(seed) * seedPrime
	for i, v := range values {
		h ^= uint64(int64(v)) * axisPrimes[i%len(axisPrimes)]
		h = bits.RotateLeft64(h, 27)
	}
	return avalanche(h)
}

// avalanche - финализатор в стиле Murmur3
func avalanche(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

// DeterministicUnit возвращает псевдослучайное число в [0, 1),
// которое зависит только от аргументов. Никакого состояния: один и тот же
// вызов всегда даёт один и тот же результат, поэтому выгруженный чанк
// можно сгенерировать заново без сохранения.
func DeterministicUnit(seed int64, values ...int) float64 {
	h := Combine(seed, values...)

	// 24 старших бита держат аргумент синуса в диапазоне, где float64
	// не теряет точность дробной части.
	x := float64(h >> 40)
	s := math.Sin(x) * sineScale
	f := s - math.Floor(s)
	if f >= 1 || f < 0 {
		return 0
	}
	return f
}
