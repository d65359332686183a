package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileAtDeterministic(t *testing.T) {
	for gx := -40; gx < 40; gx += 3 {
		for gy := -40; gy < 40; gy += 3 {
			first := TileAt(42, gx, gy)
			for i := 0; i < 3; i++ {
				require.Equal(t, first, TileAt(42, gx, gy))
			}
			assert.NotEqual(t, TileVoid, first, "генератор не выдаёт пустых тайлов")
		}
	}
}

func TestTileFromUnitTable(t *testing.T) {
	assert.Equal(t, TileWater, TileFromUnit(0))
	assert.Equal(t, TileWater, TileFromUnit(0.119))
	assert.Equal(t, TileSand, TileFromUnit(0.121))
	assert.Equal(t, TileGrass, TileFromUnit(0.5))
	assert.Equal(t, TileFlowers, TileFromUnit(0.9999999))
	assert.InDelta(t, 1.0, cumulativeTiles[len(cumulativeTiles)-1].upper, 1e-9)
}

func TestTileDistributionFollowsWeights(t *testing.T) {
	counts := make(map[TileID]int)
	const side = 200
	for gx := 0; gx < side; gx++ {
		for gy := 0; gy < side; gy++ {
			counts[TileAt(7, gx, gy)]++
		}
	}
	total := float64(side * side)
	for _, w := range tileWeights {
		assert.InDelta(t, w.weight, float64(counts[w.id])/total, 0.02, "доля тайла %s", TileName(w.id))
	}
}

func TestGenerateGridMatchesTileAt(t *testing.T) {
	mapper := NewCoordinateMapper(16, 16)
	src, err := NewTileSource(42, TerrainModeHash, 0)
	require.NoError(t, err)
	gen := NewTerrainGenerator(mapper, src)

	for _, c := range []ChunkID{{X: 0, Y: 0}, {X: -1, Y: 3}, {X: 7, Y: -9}} {
		grid := gen.GenerateGrid(c)
		require.Len(t, grid.Tiles, 256)
		first := mapper.FirstTile(c)
		for ly := 0; ly < 16; ly++ {
			for lx := 0; lx < 16; lx++ {
				assert.Equal(t, TileAt(42, first.X+lx, first.Y+ly), grid.At(lx, ly))
			}
		}
	}

	// Повторная генерация даёт бит-в-бит тот же результат
	assert.Equal(t, gen.GenerateGrid(ChunkID{X: 3, Y: 3}), gen.GenerateGrid(ChunkID{X: 3, Y: 3}))
}

func TestNoiseTerrainDeterministic(t *testing.T) {
	mapper := NewCoordinateMapper(16, 8)
	a, err := NewTileSource(42, TerrainModeNoise, 0.05)
	require.NoError(t, err)
	b, err := NewTileSource(42, TerrainModeNoise, 0.05)
	require.NoError(t, err)

	ga := NewTerrainGenerator(mapper, a).GenerateGrid(ChunkID{X: 2, Y: -1})
	gb := NewTerrainGenerator(mapper, b).GenerateGrid(ChunkID{X: 2, Y: -1})
	assert.Equal(t, ga, gb)
}

func TestUnknownTerrainMode(t *testing.T) {
	_, err := NewTileSource(1, TerrainMode("voronoi"), 0)
	assert.Error(t, err)
}

func TestTileGridHistogram(t *testing.T) {
	g := NewTileGrid(2)
	g.Set(0, 0, TileWater)
	g.Set(1, 0, TileWater)
	g.Set(0, 1, TileSand)
	g.Set(1, 1, TileStone)
	assert.Equal(t, map[TileID]int{TileWater: 2, TileSand: 1, TileStone: 1}, g.Histogram())
}
