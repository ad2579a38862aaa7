// Package session holds the in-memory booking state for one visitor.
package session

import (
	"sync"
	"time"
)

// Client is the identified visitor, resolved by phone through the backend.
type Client struct {
	ID    string `json:"_id"`
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

// Service is a catalog item. The session only holds references to services
// the visitor selected; the catalog itself is owned by the backend.
type Service struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Duration string  `json:"duration"` // "30 m", "1 h", "1 h 30 m"
}

// Session is the booking state for a single visitor. Derived totals are
// recomputed inside the mutation that changes the selected set, so readers
// never observe stale totals.
type Session struct {
	mu sync.Mutex

	client   *Client
	services []Service // selection order kept for rendering; IDs unique
	date     time.Time
	timeSlot string

	totalPrice    float64
	totalDuration string

	onDateChange func(time.Time)

	startedAt time.Time
	updatedAt time.Time
}

// New creates a session with the date defaulted to today.
func New() *Session {
	now := time.Now()
	return &Session{
		date:      today(now),
		startedAt: now,
		updatedAt: now,
	}
}

func today(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// OnDateChange registers the listener invoked after every date change,
// including the reset back to today. At most one listener is held.
func (s *Session) OnDateChange(fn func(time.Time)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDateChange = fn
}

// SetClient replaces the client reference. The phone-verification flow is
// responsible for passing a resolved identity.
func (s *Session) SetClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = c
	s.updatedAt = time.Now()
}

// Client returns the identified client, or nil.
func (s *Session) Client() *Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// HasClient reports whether the visitor has been identified.
func (s *Session) HasClient() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

// ToggleService adds the service to the selection, or removes it when a
// service with the same ID is already selected. Totals are recomputed before
// the call returns.
func (s *Session) ToggleService(svc Service) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, cur := range s.services {
		if cur.ID == svc.ID {
			s.services = append(s.services[:i], s.services[i+1:]...)
			s.recompute()
			s.updatedAt = time.Now()
			return
		}
	}
	s.services = append(s.services, svc)
	s.recompute()
	s.updatedAt = time.Now()
}

// HasService reports whether a service ID is currently selected.
func (s *Session) HasService(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.services {
		if cur.ID == id {
			return true
		}
	}
	return false
}

// Services returns a copy of the current selection.
func (s *Session) Services() []Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Service, len(s.services))
	copy(out, s.services)
	return out
}

// ServiceCount returns the number of selected services.
func (s *Session) ServiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.services)
}

// SetDate replaces the selected date and clears the selected time: a slot is
// only meaningful for the date it was fetched against.
func (s *Session) SetDate(d time.Time) {
	s.mu.Lock()
	s.date = d
	s.timeSlot = ""
	s.updatedAt = time.Now()
	notify := s.onDateChange
	s.mu.Unlock()

	if notify != nil {
		notify(d)
	}
}

// Date returns the selected date. Never zero.
func (s *Session) Date() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.date
}

// SetTime replaces the selected time slot. No cross-field side effects.
func (s *Session) SetTime(t string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeSlot = t
	s.updatedAt = time.Now()
}

// Time returns the selected time slot label, or "".
func (s *Session) Time() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeSlot
}

// TotalPrice returns the sum of prices over the selected services.
func (s *Session) TotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPrice
}

// TotalDuration returns the formatted minute-sum over the selected services,
// e.g. "1h 30m". Empty when nothing is selected.
func (s *Session) TotalDuration() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalDuration
}

// ResetBooking clears the client, selection and time, and resets the date to
// today. Admin state is untouched. The date listener fires for the reset.
func (s *Session) ResetBooking() {
	s.mu.Lock()
	s.client = nil
	s.services = nil
	s.timeSlot = ""
	s.date = today(time.Now())
	s.recompute()
	s.updatedAt = time.Now()
	d := s.date
	notify := s.onDateChange
	s.mu.Unlock()

	if notify != nil {
		notify(d)
	}
}

// IsExpired checks whether the session has been idle longer than timeout.
func (s *Session) IsExpired(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.updatedAt) > timeout
}

// recompute derives totals from the selected set. Malformed catalog durations
// contribute zero minutes so one bad entry cannot block checkout.
// Caller holds s.mu.
func (s *Session) recompute() {
	var price float64
	var minutes int
	for _, svc := range s.services {
		price += svc.Price
		if m, ok := ParseDuration(svc.Duration); ok {
			minutes += m
		}
	}
	s.totalPrice = price
	s.totalDuration = FormatDuration(minutes)
}
