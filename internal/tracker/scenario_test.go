package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factory-tracker/internal/events"
	"factory-tracker/internal/models"
	"factory-tracker/internal/tracker"
)

// Register, log in, report, get deleted, then come back by pinging again.
func TestDriverLifecycle(t *testing.T) {
	f := newFixture()

	reg, err := f.registry.Register("Test", "+901", "34AA1")
	require.NoError(t, err)
	require.False(t, reg.Restored)
	id := reg.Driver.ID

	_, err = f.registry.Login("+901", "34AA1")
	require.NoError(t, err)

	res, err := f.registry.ReportLocation(id, models.Location{Latitude: 39.0, Longitude: 32.0})
	require.NoError(t, err)
	assert.InDelta(t, 412.25, res.DistanceToFactory, 0.01)
	assert.Equal(t, 495, res.EtaMinutes)

	drivers := f.registry.ListDrivers()
	require.Len(t, drivers, 1)
	assert.Equal(t, models.StatusActive, drivers[0].Status)

	require.NoError(t, f.registry.Delete(id))
	assert.Empty(t, f.registry.ListDrivers())

	_, err = f.registry.ReportLocation(id, models.Location{Latitude: 39.01, Longitude: 32.01})
	require.NoError(t, err)

	drivers = f.registry.ListDrivers()
	require.Len(t, drivers, 1)
	assert.Equal(t, id, drivers[0].ID)
	assert.Equal(t, models.StatusActive, drivers[0].Status)

	assert.Equal(t, []events.Type{
		events.TypeDriverRegistered,
		events.TypeDriverStatusChanged,
		events.TypeLocationUpdate,
		events.TypeDriverDeleted,
		events.TypeDriverRestored,
		events.TypeLocationUpdate,
	}, f.publisher.Types())

	_, err = f.registry.Register("Other", "+901", "34AA1")
	assert.ErrorIs(t, err, tracker.ErrDuplicateIdentity)
}
