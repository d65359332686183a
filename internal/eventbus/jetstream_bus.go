package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/worldstream/internal/logging"
	nats "github.com/nats-io/nats.go"
)

// subjectPrefix - все события мира публикуются в world.<EventType>
const subjectPrefix = "world"

// Размер очереди между тиком и горутиной отправки, и предел
// неподтверждённых PublishAsync
const (
	jetStreamQueueSize  = 1024
	jetStreamMaxPending = 256
)

// JetStreamBus реализует EventBus поверх NATS JetStream.
// Publish только ставит событие в очередь; сериализация и PublishAsync
// выполняются в отдельной горутине, поэтому медленный брокер не задерживает тик.
type JetStreamBus struct {
	nc        *nats.Conn
	js        nats.JetStreamContext
	stream    string
	out       *handoff
	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64 // ошибки сериализации и отправки
}

// NewJetStreamBus подключается к кластеру NATS и гарантирует наличие стрима.
// url: nats://127.0.0.1:4222, stream: "WORLD_EVENTS".
func NewJetStreamBus(url, stream string, retention time.Duration) (*JetStreamBus, error) {
	if stream == "" {
		stream = "WORLD_EVENTS"
	}

	nc, err := nats.Connect(url, nats.Name("worldstream"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	jb := &JetStreamBus{nc: nc, stream: stream}

	js, err := nc.JetStream(
		nats.PublishAsyncMaxPending(jetStreamMaxPending),
		nats.PublishAsyncErrHandler(func(_ nats.JetStream, msg *nats.Msg, err error) {
			jb.dropped.Add(1)
			logging.Warn("JetStream: событие %s не сохранено: %v", msg.Subject, err)
		}),
	)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	jb.js = js

	// Стрим создаётся, если его ещё нет (subjects: world.*)
	if _, err = js.StreamInfo(stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      stream,
			Subjects:  []string{subjectPrefix + ".*"},
			Retention: nats.LimitsPolicy,
			MaxAge:    retention,
			Storage:   nats.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("add stream: %w", err)
		}
	}

	jb.out = newHandoff(jetStreamQueueSize, jb.send)
	logging.Info("JetStream: подключено к %s, стрим %s", url, stream)
	return jb, nil
}

// subject возвращает subject NATS для типа события
func subject(eventType string) string {
	return fmt.Sprintf("%s.%s", subjectPrefix, eventType)
}

// Publish ставит событие в очередь отправки. Низкий приоритет при полной
// очереди отбрасывается, высокий ждёт места или отмены ctx.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	return jb.out.push(ctx, ev)
}

// send сериализует Envelope в JSON и публикует в subject world.<type>.
// Envelope.ID используется как Msg-Id для дедупликации на стороне сервера.
// Может ждать освобождения окна PublishAsync; вызывается только из горутины очереди.
func (jb *JetStreamBus) send(ev *Envelope) {
	data, err := json.Marshal(ev)
	if err != nil {
		jb.dropped.Add(1)
		logging.Warn("JetStream: сериализация %s: %v", ev.EventType, err)
		return
	}
	if _, err = jb.js.PublishAsync(subject(ev.EventType), data, nats.MsgId(ev.ID)); err != nil {
		jb.dropped.Add(1)
		logging.Warn("JetStream: публикация %s: %v", ev.EventType, err)
		return
	}
	jb.published.Add(1)
}

// Subscribe создаёт durable consumer и вызывает handler асинхронно.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subj := subject("*")
	if len(f.Types) == 1 {
		subj = subject(f.Types[0])
	}

	durable := nats.Durable(fmt.Sprintf("sub_%d", time.Now().UnixNano()))

	natSub, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err == nil && matchFilter(&ev, f) {
			h(ctx, &ev)
			jb.consumed.Add(1)
		}
		_ = msg.Ack()
	}, nats.ManualAck(), durable, nats.AckWait(30*time.Second))
	if err != nil {
		return nil, err
	}

	return &jetSub{natSub}, nil
}

// jetSub обёртка вокруг *nats.Subscription чтобы удовлетворить наш интерфейс.
type jetSub struct {
	s *nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	_ = j.s.Unsubscribe()
}

// Metrics возвращает текущие метрики.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: jb.published.Load(),
		Consumed:  jb.consumed.Load(),
		Dropped:   jb.dropped.Load() + jb.out.dropped.Load(),
		InFlight:  jb.out.pending() + jb.js.PublishAsyncPending(),
	}
}

// Close отправляет события из очереди, дожидается их подтверждения и закрывает соединение.
func (jb *JetStreamBus) Close() error {
	jb.out.close()
	select {
	case <-jb.js.PublishAsyncComplete():
	case <-time.After(5 * time.Second):
		logging.Warn("JetStream: не дождались подтверждения %d событий", jb.js.PublishAsyncPending())
	}
	return jb.nc.Drain()
}
