package events_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factory-tracker/internal/events"
	"factory-tracker/internal/models"
)

type recorder struct {
	name string
	mu   sync.Mutex
	got  []events.Event
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Deliver(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, e)
	return nil
}

func (r *recorder) events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.got))
	copy(out, r.got)
	return out
}

func driverEvent(t events.Type, id string) events.Event {
	return events.NewDriverEvent(t, models.Driver{ID: id}, time.Now())
}

func TestBroadcaster_AdminReceivesEverything(t *testing.T) {
	t.Parallel()

	b := events.NewBroadcaster(16, nil)
	defer b.Close()

	admin := &recorder{name: "admin"}
	_, err := b.Subscribe(events.AdminChannel, admin)
	require.NoError(t, err)

	b.Publish(driverEvent(events.TypeDriverRegistered, "a"))
	b.Publish(driverEvent(events.TypeDriverDeleted, "b"))

	require.Eventually(t, func() bool { return len(admin.events()) == 2 }, time.Second, 5*time.Millisecond)
	got := admin.events()
	assert.Equal(t, events.TypeDriverRegistered, got[0].Type)
	assert.Equal(t, events.TypeDriverDeleted, got[1].Type)
}

func TestBroadcaster_DriverChannelIsFiltered(t *testing.T) {
	t.Parallel()

	b := events.NewBroadcaster(16, nil)
	defer b.Close()

	mine := &recorder{name: "driver-a"}
	_, err := b.Subscribe(events.DriverChannel("a"), mine)
	require.NoError(t, err)

	b.Publish(driverEvent(events.TypeDriverStatusChanged, "b"))
	b.Publish(driverEvent(events.TypeDriverStatusChanged, "a"))

	require.Eventually(t, func() bool { return len(mine.events()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "a", mine.events()[0].DriverID)
}

func TestBroadcaster_UnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	b := events.NewBroadcaster(16, nil)
	defer b.Close()

	r := &recorder{name: "temp"}
	unsubscribe, err := b.Subscribe(events.AdminChannel, r)
	require.NoError(t, err)

	b.Publish(driverEvent(events.TypeDriverRegistered, "a"))
	unsubscribe()
	unsubscribe()
	b.Publish(driverEvent(events.TypeDriverRegistered, "b"))

	assert.Equal(t, 0, b.SubscriberCount())
	got := r.events()
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].DriverID)
}

func TestBroadcaster_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	b := events.NewBroadcaster(1, nil)
	defer b.Close()

	release := make(chan struct{})
	slow := events.SubscriberFunc{ID: "slow", Fn: func(ctx context.Context, _ events.Event) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}}
	fast := &recorder{name: "fast"}

	_, err := b.Subscribe(events.AdminChannel, slow)
	require.NoError(t, err)
	_, err = b.Subscribe(events.AdminChannel, fast)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			b.Publish(driverEvent(events.TypeLocationUpdate, "a"))
			time.Sleep(time.Millisecond)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	close(release)

	require.Eventually(t, func() bool { return len(fast.events()) > 0 }, time.Second, 5*time.Millisecond)
}

func TestBroadcaster_FailingSubscriberIsIsolated(t *testing.T) {
	t.Parallel()

	b := events.NewBroadcaster(16, nil)
	defer b.Close()

	panicky := events.SubscriberFunc{ID: "panicky", Fn: func(context.Context, events.Event) error {
		panic("boom")
	}}
	failing := events.SubscriberFunc{ID: "failing", Fn: func(context.Context, events.Event) error {
		return errors.New("broker down")
	}}
	ok := &recorder{name: "ok"}

	for _, s := range []events.Subscriber{panicky, failing, ok} {
		_, err := b.Subscribe(events.AdminChannel, s)
		require.NoError(t, err)
	}

	b.Publish(driverEvent(events.TypeDriverRegistered, "a"))
	b.Publish(driverEvent(events.TypeDriverRegistered, "b"))

	require.Eventually(t, func() bool { return len(ok.events()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestBroadcaster_SubscribeAfterClose(t *testing.T) {
	t.Parallel()

	b := events.NewBroadcaster(0, nil)
	b.Close()

	_, err := b.Subscribe(events.AdminChannel, &recorder{name: "late"})
	assert.Error(t, err)

	b.Publish(driverEvent(events.TypeDriverRegistered, "a"))
}

func TestEvent_Channels(t *testing.T) {
	t.Parallel()

	e := driverEvent(events.TypeDriverDeleted, "x")
	assert.Equal(t, []string{events.AdminChannel, "driver:x"}, e.Channels())
	assert.Equal(t, []string{events.AdminChannel}, events.Event{Type: events.TypeDriverDeleted}.Channels())
}
