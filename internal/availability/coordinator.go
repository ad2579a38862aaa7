// Package availability keeps the time-slot list in step with the selected
// date. Date changes can outrun slot fetches, so results carry a generation
// token and only the fetch for the latest requested date is ever applied.
package availability

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"barberia/internal/metrics"
)

// State of the coordinator. A failed fetch behaves like ready with an empty
// slot list and a surfaced error message.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
)

// SlotSource fetches available time labels for a date.
type SlotSource interface {
	AvailableSlots(ctx context.Context, date time.Time) ([]string, error)
}

// Snapshot is a consistent view of the coordinator for rendering.
type Snapshot struct {
	State  State
	Date   time.Time
	Slots  []string
	ErrMsg string // user-facing, set when the last fetch failed
}

// Coordinator tracks slot availability for one visitor session.
type Coordinator struct {
	mu     sync.Mutex
	source SlotSource
	logger zerolog.Logger
	notify func(Snapshot)

	gen    uint64
	state  State
	date   time.Time
	slots  []string
	errMsg string
}

// New creates an idle coordinator.
func New(source SlotSource, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		source: source,
		logger: logger,
		state:  StateIdle,
	}
}

// OnUpdate registers the callback invoked after a fetch result is applied.
// Stale results never trigger it. A fetch that already completed before
// registration is replayed immediately, so a fast initial load is not lost.
func (c *Coordinator) OnUpdate(fn func(Snapshot)) {
	c.mu.Lock()
	c.notify = fn
	replay := c.state == StateReady && fn != nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if replay {
		fn(snap)
	}
}

// SetDate moves the coordinator to loading and issues exactly one fetch for
// the date. A newer SetDate supersedes any fetch still in flight: the older
// result is discarded on arrival, regardless of completion order.
func (c *Coordinator) SetDate(ctx context.Context, date time.Time) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.state = StateLoading
	c.date = date
	c.slots = nil
	c.errMsg = ""
	c.mu.Unlock()

	go func() {
		slots, err := c.source.AvailableSlots(ctx, date)
		c.apply(gen, date, slots, err)
	}()
}

func (c *Coordinator) apply(gen uint64, date time.Time, slots []string, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		metrics.IncAvailabilityFetch("stale")
		c.logger.Debug().
			Str("date", date.Format("2006-01-02")).
			Msg("dropping stale availability response")
		return
	}

	c.state = StateReady
	if err != nil {
		c.slots = nil
		c.errMsg = "No se pudieron cargar los horarios disponibles."
		metrics.IncAvailabilityFetch("error")
		c.logger.Error().Err(err).
			Str("date", date.Format("2006-01-02")).
			Msg("availability fetch failed")
	} else {
		c.slots = slots
		c.errMsg = ""
		metrics.IncAvailabilityFetch("ok")
	}
	notify := c.notify
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
}

// Snapshot returns the current view.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Caller holds c.mu.
func (c *Coordinator) snapshotLocked() Snapshot {
	slots := make([]string, len(c.slots))
	copy(slots, c.slots)
	return Snapshot{
		State:  c.state,
		Date:   c.date,
		Slots:  slots,
		ErrMsg: c.errMsg,
	}
}

// CanSelect reports whether a slot label may be selected: it must belong to
// the ready slot list of the current date, never to a superseded fetch.
func (c *Coordinator) CanSelect(slot string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return false
	}
	for _, s := range c.slots {
		if s == slot {
			return true
		}
	}
	return false
}
