package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
)

// HighPriority - события с приоритетом ниже этого отбрасываются при полном буфере
const HighPriority = 5

// handoff - буфер между публикующим потоком (тик мира) и фоновой доставкой.
// push не блокируется для низкого приоритета; медленный получатель
// задерживает только собственную горутину.
type handoff struct {
	mu     sync.RWMutex // закрытие очереди
	closed bool
	queue  chan *Envelope
	done   chan struct{}

	accepted atomic.Uint64
	dropped  atomic.Uint64
}

// newHandoff запускает горутину, передающую события deliver в порядке push
func newHandoff(capacity int, deliver func(*Envelope)) *handoff {
	h := &handoff{
		queue: make(chan *Envelope, capacity),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		for ev := range h.queue {
			deliver(ev)
		}
	}()
	return h
}

// push ставит событие в очередь. При полном буфере низкий приоритет
// отбрасывается сразу, высокий ждёт места или отмены ctx.
func (h *handoff) push(ctx context.Context, ev *Envelope) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrClosed
	}

	select {
	case h.queue <- ev:
		h.accepted.Add(1)
		return nil
	default:
	}

	if ev.Priority < HighPriority {
		h.dropped.Add(1)
		return nil
	}
	select {
	case h.queue <- ev:
		h.accepted.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pending возвращает количество событий, ещё не переданных deliver
func (h *handoff) pending() int {
	return len(h.queue)
}

func (h *handoff) isClosed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

// close прекращает приём и дожидается передачи уже принятых событий
func (h *handoff) close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.queue)
	h.mu.Unlock()

	<-h.done
}
