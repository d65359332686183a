package world

// LifecycleEventType определяет тип события жизненного цикла чанка
type LifecycleEventType uint8

const (
	EventChunkLoaded   LifecycleEventType = iota // Чанк загружен
	EventChunkUnloaded                           // Чанк выгружен
	EventChunkFailed                             // Генерация чанка не удалась
)

// String возвращает строковое представление типа события
func (t LifecycleEventType) String() string {
	switch t {
	case EventChunkLoaded:
		return "ChunkLoaded"
	case EventChunkUnloaded:
		return "ChunkUnloaded"
	case EventChunkFailed:
		return "ChunkFailed"
	default:
		return "Unknown"
	}
}

// ChunkEvent описывает переход чанка между состояниями
type ChunkEvent struct {
	Type        LifecycleEventType
	Chunk       ChunkID
	Tick        uint64
	Decorations int
	Obstacles   int
	Err         error // Только для EventChunkFailed
}

// EventSink получает события жизненного цикла. Вызывается синхронно
// из тика, поэтому реализация не должна блокироваться.
type EventSink interface {
	OnChunkEvent(ev ChunkEvent)
}

// EventSinkFunc позволяет использовать функцию как EventSink
type EventSinkFunc func(ev ChunkEvent)

// OnChunkEvent вызывает f(ev)
func (f EventSinkFunc) OnChunkEvent(ev ChunkEvent) {
	f(ev)
}
