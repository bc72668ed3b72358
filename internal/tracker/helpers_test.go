package tracker_test

import (
	"fmt"
	"sync"
	"time"

	"factory-tracker/internal/events"
	"factory-tracker/internal/models"
	"factory-tracker/internal/tracker"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *capturePublisher) Types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *capturePublisher) Last() events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

func (p *capturePublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type fixture struct {
	registry  *tracker.Registry
	clock     *fakeClock
	publisher *capturePublisher
}

func newFixture() *fixture {
	clock := newFakeClock()
	publisher := &capturePublisher{}

	var n int
	var mu sync.Mutex
	nextID := func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("driver-%03d", n)
	}

	return &fixture{
		registry: tracker.NewRegistry(models.DefaultFactory,
			tracker.WithClock(clock.Now),
			tracker.WithPublisher(publisher),
			tracker.WithIDGenerator(nextID),
		),
		clock:     clock,
		publisher: publisher,
	}
}

func (f *fixture) mustRegister(name, phone, plate string) string {
	res, err := f.registry.Register(name, phone, plate)
	if err != nil {
		panic(err)
	}
	return res.Driver.ID
}

func ids(drivers []models.Driver) []string {
	out := make([]string, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, d.ID)
	}
	return out
}
