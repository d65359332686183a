package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Типы событий жизненного цикла чанков
const (
	TypeChunkLoaded   = "ChunkLoaded"
	TypeChunkUnloaded = "ChunkUnloaded"
	TypeChunkFailed   = "ChunkFailed"
)

// ChunkPayloadVersion - версия схемы ChunkPayload
const ChunkPayloadVersion = 1

// ChunkPayload - полезная нагрузка событий чанков
type ChunkPayload struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Tick        uint64 `json:"tick"`
	Decorations int    `json:"decorations"`
	Obstacles   int    `json:"obstacles"`
	Error       string `json:"error,omitempty"`
}

// NewChunkEnvelope упаковывает событие чанка в Envelope.
// Ошибки генерации публикуются с повышенным приоритетом.
func NewChunkEnvelope(source, correlationID, eventType string, p ChunkPayload) (*Envelope, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("сериализация события %s: %w", eventType, err)
	}

	priority := 1
	if eventType == TypeChunkFailed {
		priority = 3
	}

	return &Envelope{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		Source:        source,
		EventType:     eventType,
		Version:       ChunkPayloadVersion,
		CorrelationID: correlationID,
		Priority:      priority,
		Payload:       data,
	}, nil
}

// DecodeChunkPayload извлекает ChunkPayload из Envelope
func DecodeChunkPayload(ev *Envelope) (ChunkPayload, error) {
	var p ChunkPayload
	if ev.Version != ChunkPayloadVersion {
		return p, fmt.Errorf("неподдерживаемая версия события %s: %d", ev.EventType, ev.Version)
	}
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return p, fmt.Errorf("разбор события %s: %w", ev.EventType, err)
	}
	return p, nil
}
