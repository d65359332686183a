package main

import (
	"strings"
	"testing"

	"github.com/annel0/worldstream/internal/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringList(t *testing.T) {
	assert.Nil(t, parseStringList(""))
	assert.Equal(t, []string{"ChunkLoaded", "ChunkFailed"}, parseStringList(" ChunkLoaded, ,ChunkFailed "))
}

func TestFormatEvent(t *testing.T) {
	ev, err := eventbus.NewChunkEnvelope("worldstream", "s", eventbus.TypeChunkFailed,
		eventbus.ChunkPayload{X: -2, Y: 5, Tick: 7, Error: "panic: boom"})
	require.NoError(t, err)

	out := formatEvent(ev)
	assert.Contains(t, out, "[ChunkFailed]")
	assert.Contains(t, out, "Chunk: (-2,5) tick=7")
	assert.Contains(t, out, "Error: panic: boom")

	ev.Version = 0
	assert.Contains(t, formatEvent(ev), "⚠️")
}

func TestFormatStats(t *testing.T) {
	out := formatStats(map[string]int{"ChunkUnloaded": 7, "ChunkLoaded": 56, "ChunkFailed": 1})
	assert.True(t, strings.HasPrefix(out, "Total events: 64"))
	assert.Less(t, strings.Index(out, "ChunkLoaded"), strings.Index(out, "ChunkUnloaded"))
	assert.Less(t, strings.Index(out, "ChunkUnloaded"), strings.Index(out, "ChunkFailed"))
}
