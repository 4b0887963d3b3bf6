// Package ledger holds the authoritative model of every bid's
// lifecycle and the session capacity accounting that gates new
// postings. All state lives in memory; storage and transport are
// collaborators layered on top.
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmarkov/fundbid/internal/clock"
	"github.com/dmarkov/fundbid/internal/models"
	"github.com/dmarkov/fundbid/internal/payout"
)

// Ledger owns the bid collection and enforces the state machine
// Pending -> Active -> Completed, with Pending -> Cancelled as the
// alternate terminal path. One mutex serializes every mutation, which
// is what makes Accept races single-winner.
type Ledger struct {
	mu    sync.RWMutex
	bids  map[string]*models.Bid
	clock clock.Clock
	alloc *Allocator
}

// NewLedger creates an empty ledger
func NewLedger(clk clock.Clock, alloc *Allocator) *Ledger {
	return &Ledger{
		bids:  make(map[string]*models.Bid),
		clock: clk,
		alloc: alloc,
	}
}

// Load seeds the ledger with previously stored bids, e.g. on restart.
// Existing entries with the same id are replaced.
func (l *Ledger) Load(bids []models.Bid) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range bids {
		bid := b
		l.bids[bid.ID] = &bid
	}
}

// pendingInLocked counts pending bids created inside the given session
// window. Caller must hold l.mu.
func (l *Ledger) pendingInLocked(s models.Session) int {
	n := 0
	for _, b := range l.bids {
		if b.Status == models.StatusPending && clock.SessionOf(b.CreatedAt) == s {
			n++
		}
	}
	return n
}

// Usage returns the number of pending bids counted against a session
// window. Only pending bids consume capacity: an accepted or cancelled
// bid frees its slot for new postings.
func (l *Ledger) Usage(s models.Session) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pendingInLocked(s)
}

// Create validates and posts a new pending bid. The bid counts against
// the session window containing at. A failed create leaves no trace:
// validation and admission both happen before the bid is inserted.
func (l *Ledger) Create(ownerID int, amount float64, durationHours int, at time.Time) (models.Bid, error) {
	rate, err := payout.RateFor(durationHours)
	if err != nil {
		return models.Bid{}, err
	}
	expected, err := payout.Payout(amount, rate)
	if err != nil {
		return models.Bid{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	session := clock.SessionOf(at)
	if err := l.alloc.Admit(session, l.pendingInLocked(session)); err != nil {
		return models.Bid{}, err
	}

	bid := &models.Bid{
		ID:             uuid.New().String(),
		OwnerID:        ownerID,
		Amount:         amount,
		DurationHours:  durationHours,
		InterestRate:   rate,
		ExpectedPayout: expected,
		Status:         models.StatusPending,
		CreatedAt:      at,
	}
	l.bids[bid.ID] = bid
	return *bid, nil
}

// Accept transitions a pending bid to active on behalf of accepterID.
// Exactly one of two racing accepts succeeds; the loser sees the bid
// already out of pending and gets ErrInvalidTransition.
func (l *Ledger) Accept(bidID string, accepterID int) (models.Bid, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bid, ok := l.bids[bidID]
	if !ok {
		return models.Bid{}, models.ErrBidNotFound
	}
	if accepterID == bid.OwnerID {
		return models.Bid{}, models.ErrSelfAcceptance
	}
	if bid.Status != models.StatusPending {
		return models.Bid{}, models.ErrInvalidTransition
	}

	started := l.clock.Now()
	bid.AcceptedBy = &accepterID
	bid.StartedAt = &started
	bid.Status = models.StatusActive
	return *bid, nil
}

// Confirm completes an active bid. Only the original poster confirms
// receipt of the off-platform payment; a matured bid still waits here
// rather than auto-completing.
func (l *Ledger) Confirm(bidID string, callerID int) (models.Bid, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bid, ok := l.bids[bidID]
	if !ok {
		return models.Bid{}, models.ErrBidNotFound
	}
	if callerID != bid.OwnerID {
		return models.Bid{}, models.ErrUnauthorized
	}
	if bid.Status != models.StatusActive {
		return models.Bid{}, models.ErrInvalidTransition
	}

	completed := l.clock.Now()
	bid.CompletedAt = &completed
	bid.Status = models.StatusCompleted
	return *bid, nil
}

// Cancel withdraws a pending bid. Owner-only, and only from pending;
// an accepted bid is already someone else's commitment.
func (l *Ledger) Cancel(bidID string, callerID int) (models.Bid, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bid, ok := l.bids[bidID]
	if !ok {
		return models.Bid{}, models.ErrBidNotFound
	}
	if callerID != bid.OwnerID {
		return models.Bid{}, models.ErrUnauthorized
	}
	if bid.Status != models.StatusPending {
		return models.Bid{}, models.ErrInvalidTransition
	}

	bid.Status = models.StatusCancelled
	return *bid, nil
}

// Get returns a snapshot of one bid
func (l *Ledger) Get(bidID string) (models.Bid, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	bid, ok := l.bids[bidID]
	if !ok {
		return models.Bid{}, models.ErrBidNotFound
	}
	return *bid, nil
}

// OwnedBy returns all bids posted by userID, oldest first
func (l *Ledger) OwnedBy(userID int) []models.Bid {
	return l.snapshot(func(b *models.Bid) bool {
		return b.OwnerID == userID
	})
}

// AcceptedBy returns all bids userID has accepted, oldest first
func (l *Ledger) AcceptedBy(userID int) []models.Bid {
	return l.snapshot(func(b *models.Bid) bool {
		return b.AcceptedBy != nil && *b.AcceptedBy == userID
	})
}

// OpenExcluding returns the pool of pending bids available for userID
// to accept, i.e. pending bids posted by anyone else, oldest first.
func (l *Ledger) OpenExcluding(userID int) []models.Bid {
	return l.snapshot(func(b *models.Bid) bool {
		return b.Status == models.StatusPending && b.OwnerID != userID
	})
}

// All returns every bid, oldest first. Privileged: callers gate this
// behind the administrator role.
func (l *Ledger) All() []models.Bid {
	return l.snapshot(func(*models.Bid) bool { return true })
}

// snapshot copies matching bids out under the read lock and orders
// them by creation time, so readers never observe a half-applied
// transition.
func (l *Ledger) snapshot(match func(*models.Bid) bool) []models.Bid {
	l.mu.RLock()
	out := make([]models.Bid, 0, len(l.bids))
	for _, b := range l.bids {
		if match(b) {
			out = append(out, *b)
		}
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
