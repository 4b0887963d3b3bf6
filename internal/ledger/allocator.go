package ledger

import (
	"sync"

	"github.com/dmarkov/fundbid/internal/models"
)

// Allocator owns the three per-session capacity counters. It does not
// own bids: usage is handed in by the ledger, which has the read-only
// view of pending bid creation times.
type Allocator struct {
	mu   sync.RWMutex
	caps models.Allocation
}

// NewAllocator creates an allocator with all capacities at zero.
// Nothing is admitted until an administrator sets capacities.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// SetCapacity replaces the capacity for one session
func (a *Allocator) SetCapacity(s models.Session, capacity int) error {
	if capacity < 0 {
		return models.ErrInvalidCapacity
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	switch s {
	case models.SessionMorning:
		a.caps.Morning = capacity
	case models.SessionAfternoon:
		a.caps.Afternoon = capacity
	default:
		a.caps.Evening = capacity
	}
	return nil
}

// SetCapacities replaces all three capacities at once. All values are
// validated before any is applied, so a bad value leaves the prior
// allocation untouched.
func (a *Allocator) SetCapacities(alloc models.Allocation) error {
	if alloc.Morning < 0 || alloc.Afternoon < 0 || alloc.Evening < 0 {
		return models.ErrInvalidCapacity
	}
	a.mu.Lock()
	a.caps = alloc
	a.mu.Unlock()
	return nil
}

// Capacity returns the configured capacity for a session
func (a *Allocator) Capacity(s models.Session) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.caps.Of(s)
}

// Capacities returns a snapshot of the full allocation
func (a *Allocator) Capacities() models.Allocation {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.caps
}

// Admit gates admission of a new bid into a session window given the
// current count of pending bids in that window.
func (a *Allocator) Admit(s models.Session, pending int) error {
	if pending >= a.Capacity(s) {
		return models.ErrCapacityExceeded
	}
	return nil
}
