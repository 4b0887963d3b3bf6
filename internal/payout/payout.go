// Package payout derives interest and payout figures from a bid's
// duration tier. Pure functions, stamped onto the bid once at creation.
package payout

import "github.com/dmarkov/fundbid/internal/models"

// RateFor returns the interest rate for a duration tier
func RateFor(durationHours int) (float64, error) {
	switch durationHours {
	case 24:
		return 0.50, nil
	case 48:
		return 0.75, nil
	case 72:
		return 1.00, nil
	default:
		return 0, models.ErrInvalidDuration
	}
}

// Payout returns amount * (1 + rate). Full float64 precision is kept;
// formatting for display is the caller's concern.
func Payout(amount, rate float64) (float64, error) {
	if amount <= 0 {
		return 0, models.ErrInvalidAmount
	}
	return amount + amount*rate, nil
}
