package domain

import "time"

// Wall holds the wall-clock fields of an ICS date-time value, before any
// timezone interpretation has happened.
type Wall struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

// In materializes the wall-clock fields in the given location.
func (w Wall) In(loc *time.Location) time.Time {
	return time.Date(w.Year, w.Month, w.Day, w.Hour, w.Minute, w.Second, 0, loc)
}

// WallOf extracts wall-clock fields from a time.Time as it reads in its
// own location.
func WallOf(t time.Time) Wall {
	return Wall{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// Instant is a parsed DTSTART/DTEND value. Exactly one of three variants
// applies: the value is UTC-tagged, tagged with a named zone, or floating
// (no zone at all). A floating instant cannot be turned into an absolute
// time without an externally supplied location, so the interface carries
// no accessor for one; callers must switch on the variant.
type Instant interface {
	WallClock() Wall
	instant()
}

// UTCInstant is a value carrying a literal Z marker.
type UTCInstant struct{ Wall }

// ZonedInstant is a value qualified with a TZID parameter.
type ZonedInstant struct {
	Wall
	ZoneID string
}

// FloatingInstant is a zone-less value. Which real-world instant it names
// depends on the timezone of whoever owns the calendar.
type FloatingInstant struct{ Wall }

func (i UTCInstant) WallClock() Wall      { return i.Wall }
func (i ZonedInstant) WallClock() Wall    { return i.Wall }
func (i FloatingInstant) WallClock() Wall { return i.Wall }

func (UTCInstant) instant()      {}
func (ZonedInstant) instant()    {}
func (FloatingInstant) instant() {}
