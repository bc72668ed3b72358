package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factory-tracker/internal/events"
	"factory-tracker/internal/models"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*messaging.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, m)
	return "projects/test/messages/1", nil
}

func TestTokenStore(t *testing.T) {
	t.Parallel()

	s := NewTokenStore()
	assert.Error(t, s.Register("d1", "tok", "windows"))
	assert.Error(t, s.Register("d1", " ", "ios"))
	assert.Error(t, s.Register("", "tok", "ios"))

	require.NoError(t, s.Register("d1", "tok-1", "ios"))
	require.NoError(t, s.Register("d1", "tok-2", "android"))

	d, ok := s.Get("d1")
	require.True(t, ok)
	assert.Equal(t, "tok-2", d.Token)
	assert.Equal(t, "android", d.DeviceType)
	assert.Equal(t, 1, s.Len())

	s.Remove("d1")
	_, ok = s.Get("d1")
	assert.False(t, ok)
}

func TestFCMService_Deliver(t *testing.T) {
	t.Parallel()

	now := time.Now()
	driver := models.Driver{ID: "d1", Name: "Ali"}

	tests := []struct {
		name      string
		event     events.Event
		wantSent  bool
		wantTitle string
	}{
		{
			name:      "deleted",
			event:     events.NewDriverEvent(events.TypeDriverDeleted, driver, now),
			wantSent:  true,
			wantTitle: "Account removed",
		},
		{
			name:      "restored",
			event:     events.NewDriverEvent(events.TypeDriverRestored, driver, now),
			wantSent:  true,
			wantTitle: "Welcome back",
		},
		{
			name:      "destination",
			event:     events.NewDestinationEvent(events.DestinationUpdate{DriverID: "d1", Destination: "Depo"}, now),
			wantSent:  true,
			wantTitle: "Destination updated",
		},
		{
			name:  "location updates stay silent",
			event: events.NewLocationEvent(events.LocationUpdate{DriverID: "d1"}, now),
		},
		{
			name:  "driver without token",
			event: events.NewDriverEvent(events.TypeDriverDeleted, models.Driver{ID: "d2"}, now),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tokens := NewTokenStore()
			require.NoError(t, tokens.Register("d1", "tok-1", "android"))
			sender := &fakeSender{}
			svc := NewFCMServiceWithSender(sender, tokens, nil)

			require.NoError(t, svc.Deliver(context.Background(), tt.event))

			if !tt.wantSent {
				assert.Empty(t, sender.sent)
				return
			}
			require.Len(t, sender.sent, 1)
			msg := sender.sent[0]
			assert.Equal(t, "tok-1", msg.Token)
			assert.Equal(t, tt.wantTitle, msg.Notification.Title)
			assert.Equal(t, string(tt.event.Type), msg.Data["type"])
			assert.Equal(t, "d1", msg.Data["driver_id"])
		})
	}
}

func TestFCMService_SendError(t *testing.T) {
	t.Parallel()

	tokens := NewTokenStore()
	require.NoError(t, tokens.Register("d1", "tok-1", "ios"))
	svc := NewFCMServiceWithSender(&fakeSender{err: errors.New("quota exceeded")}, tokens, nil)

	err := svc.Deliver(context.Background(), events.NewDriverEvent(events.TypeDriverRestored, models.Driver{ID: "d1"}, time.Now()))
	assert.ErrorContains(t, err, "quota exceeded")

	_, ok := tokens.Get("d1")
	assert.True(t, ok, "only unregistered tokens are dropped")
}
