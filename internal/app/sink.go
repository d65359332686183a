package app

import (
	"context"

	"github.com/annel0/worldstream/internal/eventbus"
	"github.com/annel0/worldstream/internal/logging"
	"github.com/annel0/worldstream/internal/world"
)

// BusSink публикует события жизненного цикла чанков в шину событий.
// Вызывается из тика, поэтому шина не должна блокировать публикацию
// событий низкого приоритета.
type BusSink struct {
	bus       eventbus.EventBus
	source    string
	sessionID string
}

// NewBusSink создаёт адаптер world.EventSink → eventbus.EventBus
func NewBusSink(bus eventbus.EventBus, source, sessionID string) *BusSink {
	return &BusSink{bus: bus, source: source, sessionID: sessionID}
}

// OnChunkEvent реализует world.EventSink
func (s *BusSink) OnChunkEvent(ev world.ChunkEvent) {
	payload := eventbus.ChunkPayload{
		X:           ev.Chunk.X,
		Y:           ev.Chunk.Y,
		Tick:        ev.Tick,
		Decorations: ev.Decorations,
		Obstacles:   ev.Obstacles,
	}
	if ev.Err != nil {
		payload.Error = ev.Err.Error()
	}

	env, err := eventbus.NewChunkEnvelope(s.source, s.sessionID, ev.Type.String(), payload)
	if err != nil {
		logging.Warn("Событие %s для чанка (%d,%d) не создано: %v", ev.Type, ev.Chunk.X, ev.Chunk.Y, err)
		return
	}
	if err := s.bus.Publish(context.Background(), env); err != nil {
		logging.Warn("Событие %s для чанка (%d,%d) не опубликовано: %v", ev.Type, ev.Chunk.X, ev.Chunk.Y, err)
	}
}
