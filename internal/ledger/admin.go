package ledger

import "github.com/dmarkov/fundbid/internal/models"

// Admin is the privileged entry point for capacity changes. The role
// check trusts the caller context; authentication happened upstream.
type Admin struct {
	alloc *Allocator
}

// NewAdmin wraps an allocator with the administrator authorization check
func NewAdmin(alloc *Allocator) *Admin {
	return &Admin{alloc: alloc}
}

// UpdateAllocations applies a full capacity update. All three values
// are validated before any is applied, so the update is all-or-nothing.
func (ad *Admin) UpdateAllocations(caller models.Caller, alloc models.Allocation) error {
	if !caller.Admin {
		return models.ErrUnauthorized
	}
	return ad.alloc.SetCapacities(alloc)
}

// Allocations returns the current capacity configuration
func (ad *Admin) Allocations() models.Allocation {
	return ad.alloc.Capacities()
}
