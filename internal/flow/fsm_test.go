package flow

import "testing"

func TestFSMTransitions(t *testing.T) {
	fsm := NewFSM()

	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{"verify to new client", StateVerifying, StateNewClient, true},
		{"verify to booking", StateVerifying, StateBooking, true},
		{"verify to confirmed", StateVerifying, StateConfirmed, false},
		{"new client to booking", StateNewClient, StateBooking, true},
		{"new client back to verify", StateNewClient, StateVerifying, true},
		{"new client to confirmed", StateNewClient, StateConfirmed, false},
		{"booking to confirmed", StateBooking, StateConfirmed, true},
		{"booking reset", StateBooking, StateVerifying, true},
		{"booking to new client", StateBooking, StateNewClient, false},
		{"confirmed reset", StateConfirmed, StateVerifying, true},
		{"confirmed to booking", StateConfirmed, StateBooking, false},
		{"unknown state", State("nope"), StateBooking, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fsm.CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}
