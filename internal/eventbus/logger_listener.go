package eventbus

import (
	"context"

	"github.com/annel0/worldstream/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в стандартный лог.
// Функция неблокирующая.
func StartLoggingListener(bus EventBus) (Subscription, error) {
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		if p, err := DecodeChunkPayload(ev); err == nil {
			logging.Trace("[EventBus] %s %s (%d,%d) tick=%d prio=%d", ev.ID, ev.EventType, p.X, p.Y, p.Tick, ev.Priority)
			return
		}
		logging.Debug("[EventBus] %s %s src=%s prio=%d size=%dB", ev.ID, ev.EventType, ev.Source, ev.Priority, len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	logging.Info("🪵 LoggingListener: подписка на все события активирована")
	return sub, nil
}
