package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkov/fundbid/internal/models"
)

func TestAdmin_UpdateAllocations(t *testing.T) {
	alloc := NewAllocator()
	admin := NewAdmin(alloc)

	err := admin.UpdateAllocations(models.Caller{UserID: 1, Admin: true},
		models.Allocation{Morning: 10, Afternoon: 15, Evening: 20})
	require.NoError(t, err)
	assert.Equal(t, models.Allocation{Morning: 10, Afternoon: 15, Evening: 20}, admin.Allocations())
}

func TestAdmin_UpdateAllocationsUnauthorized(t *testing.T) {
	alloc := NewAllocator()
	admin := NewAdmin(alloc)

	err := admin.UpdateAllocations(models.Caller{UserID: 2, Admin: false},
		models.Allocation{Morning: 1, Afternoon: 1, Evening: 1})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Equal(t, models.Allocation{}, admin.Allocations())
}

func TestAdmin_UpdateAllocationsAllOrNothing(t *testing.T) {
	alloc := NewAllocator()
	admin := NewAdmin(alloc)

	require.NoError(t, admin.UpdateAllocations(models.Caller{UserID: 1, Admin: true},
		models.Allocation{Morning: 10, Afternoon: 15, Evening: 20}))

	// One bad value rejects the whole update.
	err := admin.UpdateAllocations(models.Caller{UserID: 1, Admin: true},
		models.Allocation{Morning: -1, Afternoon: 5, Evening: 5})
	assert.ErrorIs(t, err, models.ErrInvalidCapacity)
	assert.Equal(t, models.Allocation{Morning: 10, Afternoon: 15, Evening: 20}, admin.Allocations())
}
