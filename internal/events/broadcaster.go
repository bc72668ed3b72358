package events

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"factory-tracker/internal/metrics"

	"go.uber.org/zap"
)

// DefaultQueueSize is the per-subscriber buffer used when none is configured
const DefaultQueueSize = 256

// Subscriber receives events for the channels it subscribed to.
// Deliver runs on the subscription's own goroutine, never on the publisher's.
type Subscriber interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

// SubscriberFunc adapts a function to Subscriber
type SubscriberFunc struct {
	ID string
	Fn func(ctx context.Context, e Event) error
}

func (f SubscriberFunc) Name() string { return f.ID }

func (f SubscriberFunc) Deliver(ctx context.Context, e Event) error { return f.Fn(ctx, e) }

type subscription struct {
	id      uint64
	channel string
	sub     Subscriber
	queue   chan Event
	done    chan struct{}
}

// Broadcaster fans events out to subscribers, at most once and without replay.
// Publish never blocks: a subscriber whose queue is full misses the event.
type Broadcaster struct {
	mu        sync.RWMutex
	subs      map[uint64]*subscription
	nextID    uint64
	queueSize int
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *zap.Logger
}

// NewBroadcaster creates a broadcaster. queueSize <= 0 means DefaultQueueSize.
func NewBroadcaster(queueSize int, log *zap.Logger) *Broadcaster {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Broadcaster{
		subs:      make(map[uint64]*subscription),
		queueSize: queueSize,
		ctx:       ctx,
		cancel:    cancel,
		log:       log,
	}
}

// Subscribe registers sub for one channel and returns a function that removes it.
// The broadcaster does not own the subscriber; calling the returned func is enough
// to release it. The func waits for the subscriber's pending deliveries, so it must
// not be called from inside Deliver.
func (b *Broadcaster) Subscribe(channel string, sub Subscriber) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("subscribe %s: broadcaster closed", sub.Name())
	}

	b.nextID++
	s := &subscription{
		id:      b.nextID,
		channel: channel,
		sub:     sub,
		queue:   make(chan Event, b.queueSize),
		done:    make(chan struct{}),
	}
	b.subs[s.id] = s

	b.wg.Add(1)
	go b.pump(s)

	b.log.Debug("🔔 subscriber added",
		zap.String("subscriber", sub.Name()),
		zap.String("channel", channel),
	)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(s.id) })
	}, nil
}

// Publish hands e to every subscription listening on one of its channels
func (b *Broadcaster) Publish(e Event) {
	metrics.EventsPublished.WithLabelValues(string(e.Type)).Inc()

	channels := e.Channels()

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, s := range b.subs {
		if !contains(channels, s.channel) {
			continue
		}
		select {
		case s.queue <- e:
		default:
			metrics.EventsDropped.WithLabelValues(s.sub.Name()).Inc()
			b.log.Warn("⚠️ subscriber queue full, dropping event",
				zap.String("subscriber", s.sub.Name()),
				zap.String("type", string(e.Type)),
				zap.String("driver_id", e.DriverID),
			)
		}
	}
}

// SubscriberCount returns the number of live subscriptions
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close stops every subscription and waits for in-flight deliveries
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for id, s := range b.subs {
		close(s.queue)
		delete(b.subs, id)
	}
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
}

func (b *Broadcaster) remove(id uint64) {
	b.mu.Lock()
	s, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
		close(s.queue)
	}
	b.mu.Unlock()

	if ok {
		<-s.done
		b.log.Debug("🔕 subscriber removed",
			zap.String("subscriber", s.sub.Name()),
			zap.String("channel", s.channel),
		)
	}
}

func (b *Broadcaster) pump(s *subscription) {
	defer b.wg.Done()
	defer close(s.done)

	for e := range s.queue {
		b.deliver(s, e)
	}
}

func (b *Broadcaster) deliver(s *subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("❌ subscriber panic",
				zap.String("subscriber", s.sub.Name()),
				zap.Any("recover", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	if err := s.sub.Deliver(b.ctx, e); err != nil {
		b.log.Warn("⚠️ event delivery failed",
			zap.String("subscriber", s.sub.Name()),
			zap.String("type", string(e.Type)),
			zap.Error(err),
		)
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
