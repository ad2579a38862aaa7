package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	corte = Service{ID: "s1", Name: "Corte", Price: 25, Duration: "30 m"}
	barba = Service{ID: "s2", Name: "Barba completa", Price: 40, Duration: "1 h"}
)

func TestNewSessionDefaultsToToday(t *testing.T) {
	s := New()
	now := time.Now()
	assert.Equal(t, now.Year(), s.Date().Year())
	assert.Equal(t, now.YearDay(), s.Date().YearDay())
	assert.False(t, s.Date().IsZero())
	assert.Empty(t, s.Time())
	assert.Nil(t, s.Client())
}

func TestToggleServiceRecomputesTotals(t *testing.T) {
	s := New()

	s.ToggleService(corte)
	assert.Equal(t, 25.0, s.TotalPrice())
	assert.Equal(t, "30m", s.TotalDuration())

	s.ToggleService(barba)
	assert.Equal(t, 65.0, s.TotalPrice())
	assert.Equal(t, "1h 30m", s.TotalDuration())

	// Toggling again removes, order does not matter.
	s.ToggleService(corte)
	assert.Equal(t, 40.0, s.TotalPrice())
	assert.Equal(t, "1h", s.TotalDuration())

	s.ToggleService(barba)
	assert.Equal(t, 0.0, s.TotalPrice())
	assert.Empty(t, s.TotalDuration())
	assert.Zero(t, s.ServiceCount())
}

func TestTogglePairIsIdempotent(t *testing.T) {
	s := New()
	s.ToggleService(corte)

	before := s.Services()
	s.ToggleService(barba)
	s.ToggleService(barba)

	assert.Equal(t, before, s.Services())
	assert.Equal(t, 25.0, s.TotalPrice())
}

func TestNoDuplicateServiceIDs(t *testing.T) {
	s := New()
	s.ToggleService(corte)
	s.ToggleService(corte)
	s.ToggleService(corte)

	require.Equal(t, 1, s.ServiceCount())
	assert.True(t, s.HasService("s1"))
}

func TestMalformedDurationContributesZero(t *testing.T) {
	s := New()
	s.ToggleService(corte)
	s.ToggleService(Service{ID: "bad", Name: "Tinte", Price: 15, Duration: "pronto"})

	// The bad entry still counts toward price, but adds no minutes.
	assert.Equal(t, 40.0, s.TotalPrice())
	assert.Equal(t, "30m", s.TotalDuration())
}

func TestSetDateClearsTime(t *testing.T) {
	s := New()
	s.SetTime("10:00")
	require.Equal(t, "10:00", s.Time())

	s.SetDate(s.Date().AddDate(0, 0, 1))
	assert.Empty(t, s.Time())

	// Holds even when the same date is set again.
	s.SetTime("11:00")
	s.SetDate(s.Date())
	assert.Empty(t, s.Time())
}

func TestDateChangeNotifiesListener(t *testing.T) {
	s := New()
	var got []time.Time
	s.OnDateChange(func(d time.Time) { got = append(got, d) })

	d1 := s.Date().AddDate(0, 0, 2)
	s.SetDate(d1)
	require.Len(t, got, 1)
	assert.Equal(t, d1, got[0])

	// Reset also fires, with the date back at today.
	s.ResetBooking()
	require.Len(t, got, 2)
	assert.Equal(t, time.Now().YearDay(), got[1].YearDay())
}

func TestResetBooking(t *testing.T) {
	s := New()
	s.SetClient(&Client{Phone: "+593991234567", Name: "Juan Pérez"})
	s.ToggleService(corte)
	s.SetDate(s.Date().AddDate(0, 0, 1))
	s.SetTime("10:00")

	s.ResetBooking()

	assert.Nil(t, s.Client())
	assert.Zero(t, s.ServiceCount())
	assert.Empty(t, s.Time())
	assert.Equal(t, 0.0, s.TotalPrice())
	assert.Empty(t, s.TotalDuration())
	assert.Equal(t, time.Now().YearDay(), s.Date().YearDay())
}

func TestStoreLifecycle(t *testing.T) {
	store := NewStore(time.Hour)

	assert.Nil(t, store.Get(123))

	s := store.GetOrCreate(123)
	require.NotNil(t, s)
	assert.Same(t, s, store.GetOrCreate(123))
	assert.Same(t, s, store.Get(123))

	other := store.GetOrCreate(456)
	assert.NotSame(t, s, other)

	store.Delete(123)
	assert.Nil(t, store.Get(123))
}

func TestStoreExpiry(t *testing.T) {
	store := NewStore(time.Nanosecond)
	s := store.GetOrCreate(123)
	time.Sleep(time.Millisecond)

	replaced := store.GetOrCreate(123)
	assert.NotSame(t, s, replaced)

	time.Sleep(time.Millisecond)
	assert.Equal(t, 1, store.Cleanup())
	assert.Nil(t, store.Get(123))
}
