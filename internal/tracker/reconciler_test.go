package tracker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factory-tracker/internal/models"
	"factory-tracker/internal/tracker"
)

func TestReconciler_Sweep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		prior   func(f *fixture, id string)
		elapsed time.Duration
		want    models.DriverStatus
	}{
		{
			name:    "stale after six minutes",
			elapsed: 6 * time.Minute,
			want:    models.StatusInactive,
		},
		{
			name:    "fresh at thirty seconds",
			elapsed: 30 * time.Second,
			want:    models.StatusActive,
		},
		{
			name:    "exactly one minute counts as fresh",
			elapsed: time.Minute,
			want:    models.StatusActive,
		},
		{
			name: "three minutes keeps prior status",
			prior: func(f *fixture, id string) {
				_, err := f.registry.Logout(id)
				if err != nil {
					panic(err)
				}
			},
			elapsed: 3 * time.Minute,
			want:    models.StatusOffline,
		},
		{
			name:    "exactly five minutes keeps prior status",
			elapsed: 5 * time.Minute,
			want:    models.StatusActive,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture()
			id := f.mustRegister("Test", "+901", "34AA1")
			_, err := f.registry.ReportLocation(id, models.Location{Latitude: 39, Longitude: 32})
			require.NoError(t, err)
			if tt.prior != nil {
				tt.prior(f, id)
			}

			f.clock.Advance(tt.elapsed)
			f.publisher.Reset()

			rc := tracker.NewReconciler(f.registry, 0, 0, 0, nil)
			rc.Sweep()

			d, ok := f.registry.FindByID(id)
			require.True(t, ok)
			assert.Equal(t, tt.want, d.Status)
			assert.Empty(t, f.publisher.Types(), "sweeps do not broadcast")
		})
	}
}

func TestReconciler_NoLocationMeansOffline(t *testing.T) {
	t.Parallel()

	f := newFixture()
	id := f.mustRegister("Test", "+901", "34AA1")
	_, err := f.registry.Login("+901", "34AA1")
	require.NoError(t, err)

	changed := tracker.NewReconciler(f.registry, 0, 0, 0, nil).Sweep()

	assert.Equal(t, 1, changed)
	d, _ := f.registry.FindByID(id)
	assert.Equal(t, models.StatusOffline, d.Status)
}

func TestReconciler_SkipsDeletedDrivers(t *testing.T) {
	t.Parallel()

	f := newFixture()
	id := f.mustRegister("Test", "+901", "34AA1")
	_, err := f.registry.ReportLocation(id, models.Location{Latitude: 39, Longitude: 32})
	require.NoError(t, err)
	require.NoError(t, f.registry.Delete(id))

	f.clock.Advance(time.Hour)
	assert.Zero(t, tracker.NewReconciler(f.registry, 0, 0, 0, nil).Sweep())
}

func TestReconciler_Task(t *testing.T) {
	t.Parallel()

	f := newFixture()
	rc := tracker.NewReconciler(f.registry, 0, 0, 0, nil)

	assert.Equal(t, tracker.DefaultReconcileInterval, rc.TTL())
	assert.NotEmpty(t, rc.Info())
	assert.NoError(t, rc.Do(context.Background()))

	custom := tracker.NewReconciler(f.registry, time.Second, 2*time.Minute, 10*time.Second, nil)
	assert.Equal(t, time.Second, custom.TTL())
}
