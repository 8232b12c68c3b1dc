package ics

import (
	"log/slog"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/huddlehq/huddle/internal/domain"
)

// Expansion limits. The window matches the CalDAV query window; the cap
// guards against pathological rules.
const (
	expandLookback       = 30 * 24 * time.Hour
	expandHorizonMonths  = 12
	maxOccurrencesPerUID = 500
)

// Expand replaces recurring events with their concrete occurrences inside
// a bounded window around now. Non-recurring events pass through
// untouched. Expansion happens on wall-clock time in each event's own
// frame, so a floating weekly practice stays floating — the timezone
// resolver still gets to interpret every occurrence.
func Expand(events []RawEvent, now time.Time) []RawEvent {
	out := make([]RawEvent, 0, len(events))

	windowStart := now.Add(-expandLookback)
	windowEnd := now.AddDate(0, expandHorizonMonths, 0)

	for _, ev := range events {
		if ev.RRule == "" {
			out = append(out, ev)
			continue
		}
		occ, err := expandEvent(ev, windowStart, windowEnd)
		if err != nil {
			slog.Warn("skipping recurring event", "uid", ev.UID, "rrule", ev.RRule, "err", err)
			continue
		}
		out = append(out, occ...)
	}

	return out
}

func expandEvent(ev RawEvent, windowStart, windowEnd time.Time) ([]RawEvent, error) {
	loc := expansionLocation(ev.Start)

	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		return nil, err
	}
	start := ev.Start.WallClock().In(loc)
	r.DTStart(start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.WallClock().In(loc))
	}

	duration := ev.End.WallClock().In(loc).Sub(start)
	if duration <= 0 {
		duration = defaultEventDuration
	}

	times := set.Between(windowStart.In(loc), windowEnd.In(loc), true)
	if len(times) > maxOccurrencesPerUID {
		slog.Warn("recurrence capped", "uid", ev.UID, "cap", maxOccurrencesPerUID)
		times = times[:maxOccurrencesPerUID]
	}

	occurrences := make([]RawEvent, 0, len(times))
	for _, t := range times {
		occ := ev
		occ.RRule = ""
		occ.ExDates = nil
		occ.Start = rebuildInstant(ev.Start, t)
		occ.End = rebuildInstant(ev.End, t.Add(duration))
		occurrences = append(occurrences, occ)
	}
	return occurrences, nil
}

// expansionLocation picks the frame recurrence arithmetic runs in: the
// named zone for zoned events (so DST transitions keep the wall clock
// fixed), UTC otherwise.
func expansionLocation(in domain.Instant) *time.Location {
	if z, ok := in.(domain.ZonedInstant); ok {
		if loc, err := time.LoadLocation(z.ZoneID); err == nil {
			return loc
		}
	}
	return time.UTC
}

// rebuildInstant wraps an occurrence time back into the source instant's
// variant.
func rebuildInstant(src domain.Instant, t time.Time) domain.Instant {
	w := domain.WallOf(t)
	switch v := src.(type) {
	case domain.UTCInstant:
		return domain.UTCInstant{Wall: w}
	case domain.ZonedInstant:
		return domain.ZonedInstant{Wall: w, ZoneID: v.ZoneID}
	default:
		return domain.FloatingInstant{Wall: w}
	}
}
