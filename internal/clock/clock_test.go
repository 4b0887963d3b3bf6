package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmarkov/fundbid/internal/models"
)

func at(hour, min, sec int) time.Time {
	return time.Date(2025, time.March, 14, hour, min, sec, 0, time.UTC)
}

func TestSessionOf(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want models.Session
	}{
		{"JustBeforeMorning", at(6, 59, 59), models.SessionEvening},
		{"MorningStart", at(7, 0, 0), models.SessionMorning},
		{"MidMorning", at(9, 30, 0), models.SessionMorning},
		{"MorningEnd", at(12, 59, 59), models.SessionMorning},
		{"AfternoonStart", at(13, 0, 0), models.SessionAfternoon},
		{"AfternoonEnd", at(18, 59, 59), models.SessionAfternoon},
		{"EveningStart", at(19, 0, 0), models.SessionEvening},
		{"LateNight", at(23, 45, 0), models.SessionEvening},
		{"EarlyMorning", at(2, 0, 0), models.SessionEvening},
		{"Midnight", at(0, 0, 0), models.SessionEvening},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SessionOf(tt.t))
		})
	}
}

func TestNextSessionStarts(t *testing.T) {
	from := at(8, 0, 0) // mid-morning

	starts := NextSessionStarts(from, 4)
	assert.Len(t, starts, 4)

	assert.Equal(t, at(13, 0, 0), starts[0])
	assert.Equal(t, at(19, 0, 0), starts[1])
	assert.Equal(t, at(7, 0, 0).AddDate(0, 0, 1), starts[2])
	assert.Equal(t, at(13, 0, 0).AddDate(0, 0, 1), starts[3])

	for i, s := range starts {
		assert.True(t, s.After(from), "start %d must be strictly after from", i)
	}
}

func TestNextSessionStartsAtBoundary(t *testing.T) {
	// An instant exactly on a session start is not "strictly after".
	starts := NextSessionStarts(at(13, 0, 0), 3)
	assert.Equal(t, at(19, 0, 0), starts[0])
	assert.Equal(t, at(7, 0, 0).AddDate(0, 0, 1), starts[1])
	assert.Equal(t, at(13, 0, 0).AddDate(0, 0, 1), starts[2])
}

func TestNextSessionStartsAgreesWithSessionOf(t *testing.T) {
	for _, s := range NextSessionStarts(at(3, 17, 0), 9) {
		switch s.Hour() {
		case 7:
			assert.Equal(t, models.SessionMorning, SessionOf(s))
		case 13:
			assert.Equal(t, models.SessionAfternoon, SessionOf(s))
		case 19:
			assert.Equal(t, models.SessionEvening, SessionOf(s))
		default:
			t.Fatalf("unexpected session start hour %d", s.Hour())
		}
	}
}

func TestFixedClock(t *testing.T) {
	now := at(10, 0, 0)
	assert.Equal(t, now, Fixed{T: now}.Now())
}
