// Package gate decides whether a protected step may be entered. Gates are
// pure predicates over session state: they return a routing decision and the
// dispatcher performs the redirect, never the gate itself.
package gate

import "time"

// Step identifies a navigable step of the flow.
type Step string

const (
	StepVerify         Step = "verify"
	StepBook           Step = "book"
	StepConfirmation   Step = "confirmation"
	StepAdminLogin     Step = "admin_login"
	StepAdminDashboard Step = "admin_dashboard"
)

// Decision is the outcome of a gate check. When Allow is false, RedirectTo
// names the step the visitor is sent to instead.
type Decision struct {
	Allow      bool
	RedirectTo Step
}

func proceed() Decision {
	return Decision{Allow: true}
}

func redirect(to Step) Decision {
	return Decision{RedirectTo: to}
}

// BookingState is the session surface the booking gates read.
type BookingState interface {
	HasClient() bool
	ServiceCount() int
	Date() time.Time
	Time() string
}

// AdminState is the session surface the admin gate reads.
type AdminState interface {
	Authenticated() bool
}

// Booking admits the service/date/time selection step: the visitor must be
// identified.
func Booking(s BookingState) Decision {
	if s == nil || !s.HasClient() {
		return redirect(StepVerify)
	}
	return proceed()
}

// Confirmation admits the confirmation step: it certifies a complete booking,
// not just an identified client.
func Confirmation(s BookingState) Decision {
	if s == nil || !s.HasClient() || s.ServiceCount() == 0 || s.Date().IsZero() || s.Time() == "" {
		return redirect(StepVerify)
	}
	return proceed()
}

// Admin admits the admin dashboard: the admin session must hold a token.
func Admin(a AdminState) Decision {
	if a == nil || !a.Authenticated() {
		return redirect(StepAdminLogin)
	}
	return proceed()
}
