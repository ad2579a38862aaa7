package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"barberia/internal/session"
)

type adminStub bool

func (a adminStub) Authenticated() bool { return bool(a) }

func completeSession() *session.Session {
	s := session.New()
	s.SetClient(&session.Client{Phone: "+593991234567", Name: "Juan Pérez"})
	s.ToggleService(session.Service{ID: "s1", Name: "Corte", Price: 25, Duration: "30 m"})
	s.SetTime("10:00")
	return s
}

func TestBookingGate(t *testing.T) {
	s := session.New()
	d := Booking(s)
	assert.False(t, d.Allow)
	assert.Equal(t, StepVerify, d.RedirectTo)

	s.SetClient(&session.Client{Phone: "+593991234567", Name: "Juan Pérez"})
	assert.True(t, Booking(s).Allow)
}

func TestConfirmationGatePassesForCompleteBooking(t *testing.T) {
	assert.True(t, Confirmation(completeSession()).Allow)
}

func TestConfirmationGateFailsWhenAnyFieldMissing(t *testing.T) {
	tests := []struct {
		name  string
		mutate func(*session.Session)
	}{
		{"no client", func(s *session.Session) { s.ResetBooking() }},
		{"no services", func(s *session.Session) {
			s.ToggleService(session.Service{ID: "s1", Name: "Corte", Price: 25, Duration: "30 m"})
		}},
		{"no time", func(s *session.Session) { s.SetTime("") }},
		{"date change cleared time", func(s *session.Session) { s.SetDate(s.Date().AddDate(0, 0, 1)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := completeSession()
			tt.mutate(s)
			d := Confirmation(s)
			assert.False(t, d.Allow)
			assert.Equal(t, StepVerify, d.RedirectTo)
		})
	}
}

func TestAdminGate(t *testing.T) {
	d := Admin(adminStub(false))
	assert.False(t, d.Allow)
	assert.Equal(t, StepAdminLogin, d.RedirectTo)

	assert.True(t, Admin(adminStub(true)).Allow)
}

func TestGatesAreIdempotent(t *testing.T) {
	s := completeSession()
	first := Confirmation(s)
	second := Confirmation(s)
	assert.Equal(t, first, second)
	assert.Equal(t, "10:00", s.Time(), "gate must not mutate session state")
}
