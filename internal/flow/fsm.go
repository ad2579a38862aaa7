// Package flow drives the four-step booking wizard: phone verification,
// service and time selection, confirmation, reset.
package flow

// State represents the current step of the booking flow.
type State string

const (
	// StateVerifying is the entry step: the visitor identifies by phone.
	StateVerifying State = "verifying"
	// StateNewClient is the name-entry branch taken when the phone lookup
	// finds no existing client.
	StateNewClient State = "new_client"
	// StateBooking is the service, date and time selection step.
	StateBooking State = "booking"
	// StateConfirmed is the read-only summary after a created appointment.
	StateConfirmed State = "confirmed"
)

// FSM manages the allowed transitions of the booking flow.
type FSM struct {
	transitions map[State][]State
}

// NewFSM creates the FSM with the wizard's transition table.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StateVerifying: {StateNewClient, StateBooking},
			StateNewClient: {StateBooking, StateVerifying},
			StateBooking:   {StateConfirmed, StateVerifying},
			StateConfirmed: {StateVerifying},
		},
	}
}

// CanTransition checks whether the transition is allowed.
func (f *FSM) CanTransition(from, to State) bool {
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
