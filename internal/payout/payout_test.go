package payout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmarkov/fundbid/internal/models"
)

func TestRateFor(t *testing.T) {
	tests := []struct {
		name     string
		duration int
		want     float64
		wantErr  error
	}{
		{"Tier24", 24, 0.50, nil},
		{"Tier48", 48, 0.75, nil},
		{"Tier72", 72, 1.00, nil},
		{"Zero", 0, 0, models.ErrInvalidDuration},
		{"Negative", -24, 0, models.ErrInvalidDuration},
		{"OffTier", 36, 0, models.ErrInvalidDuration},
		{"Large", 96, 0, models.ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RateFor(tt.duration)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPayout(t *testing.T) {
	tests := []struct {
		name    string
		amount  float64
		rate    float64
		want    float64
		wantErr error
	}{
		{"Tier24", 1000, 0.50, 1500, nil},
		{"Tier48", 2000, 0.75, 3500, nil},
		{"Tier72", 3000, 1.00, 6000, nil},
		{"FractionalAmount", 0.25, 0.50, 0.375, nil},
		{"ZeroAmount", 0, 0.50, 0, models.ErrInvalidAmount},
		{"NegativeAmount", -100, 0.50, 0, models.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Payout(tt.amount, tt.rate)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			// payout is amount + amount*rate exactly, no rounding
			assert.Equal(t, tt.amount+tt.amount*tt.rate, got)
			assert.Equal(t, tt.want, got)
		})
	}
}
