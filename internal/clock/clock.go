package clock

import (
	"time"

	"github.com/dmarkov/fundbid/internal/models"
)

// Clock supplies the current instant. The core takes it as a
// dependency so tests can pin time.
type Clock interface {
	Now() time.Time
}

// System is the wall clock
type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

// Fixed always reports the same instant
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time {
	return f.T
}

// Session window start hours. Evening runs 19:00 through 06:59:59 the
// next day, so every instant belongs to exactly one window.
const (
	morningStartHour   = 7
	afternoonStartHour = 13
	eveningStartHour   = 19
)

// SessionOf maps an instant to the session window containing it
func SessionOf(t time.Time) models.Session {
	switch h := t.Hour(); {
	case h >= morningStartHour && h < afternoonStartHour:
		return models.SessionMorning
	case h >= afternoonStartHour && h < eveningStartHour:
		return models.SessionAfternoon
	default:
		return models.SessionEvening
	}
}

// sessionStart returns the start instant of the session that begins at
// the given hour on the same day as t.
func sessionStart(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

// NextSessionStarts produces the next count session start instants
// strictly after from, cycling morning, afternoon, evening and on into
// the next day. Used for countdown display; the output agrees with
// SessionOf on window membership.
func NextSessionStarts(from time.Time, count int) []time.Time {
	starts := make([]time.Time, 0, count)
	day := from
	for len(starts) < count {
		for _, hour := range []int{morningStartHour, afternoonStartHour, eveningStartHour} {
			s := sessionStart(day, hour)
			if s.After(from) {
				starts = append(starts, s)
				if len(starts) == count {
					break
				}
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return starts
}
