package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicUnitRepeatable(t *testing.T) {
	for gx := -20; gx < 20; gx++ {
		for gy := -20; gy < 20; gy++ {
			a := DeterministicUnit(42, gx, gy)
			b := DeterministicUnit(42, gx, gy)
			require.Equal(t, a, b, "значение для (%d,%d) должно повторяться", gx, gy)
			require.GreaterOrEqual(t, a, 0.0)
			require.Less(t, a, 1.0)
		}
	}
}

func TestDeterministicUnitDependsOnInputs(t *testing.T) {
	assert.NotEqual(t, DeterministicUnit(42, 1, 2), DeterministicUnit(43, 1, 2), "сид должен влиять на результат")
	assert.NotEqual(t, DeterministicUnit(42, 1, 2), DeterministicUnit(42, 2, 1), "порядок осей должен быть значим")
	assert.NotEqual(t, DeterministicUnit(42, 1, 2), DeterministicUnit(42, 1, 2, 0), "соль должна влиять на результат")
}

func TestDeterministicUnitDistribution(t *testing.T) {
	// Грубая проверка равномерности: 10 корзин по 20000 выборок
	var buckets [10]int
	const n = 20000
	for i := 0; i < n; i++ {
		v := DeterministicUnit(7, i, -i)
		buckets[int(v*10)]++
	}
	for i, c := range buckets {
		assert.InDelta(t, n/10, c, n/10*0.2, "корзина %d заполнена неравномерно", i)
	}
}

func TestNoiseFieldRange(t *testing.T) {
	f := NewNoiseField(42, 0.05)
	g := NewNoiseField(42, 0.05)
	for x := -50; x < 50; x += 7 {
		for y := -50; y < 50; y += 7 {
			v := f.Unit(x, y)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.Less(t, v, 1.0)
			assert.Equal(t, v, g.Unit(x, y), "поле с тем же сидом должно давать те же значения")
		}
	}
}
