package ics

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/huddlehq/huddle/internal/domain"
)

// ErrMalformed marks a document the decoder could not make sense of at
// all. A single bad VEVENT inside an otherwise healthy document is not
// malformed: that event is skipped with a warning and the rest of the feed
// still syncs.
var ErrMalformed = errors.New("malformed calendar document")

// defaultEventDuration fills in for a VEVENT with no DTEND.
const defaultEventDuration = time.Hour

// RawEvent is one VEVENT as parsed, before timezone resolution and
// classification. Start and End keep the three-way instant distinction;
// collapsing it here would lose the information the resolver needs.
type RawEvent struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       domain.Instant
	End         domain.Instant
	AllDay      bool
	RRule       string
	ExDates     []domain.Instant
}

// Document is the structured form of one parsed feed.
type Document struct {
	// CalendarName is the X-WR-CALNAME property, when present.
	CalendarName string
	// Name is the document-level NAME or SUMMARY property, when present.
	Name   string
	Events []RawEvent
}

// Parse decodes raw ICS text into a Document.
func Parse(raw string) (*Document, error) {
	cal, err := ical.NewDecoder(strings.NewReader(raw)).Decode()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	doc := &Document{}
	if p := cal.Props.Get("X-WR-CALNAME"); p != nil {
		doc.CalendarName = p.Value
	}
	if p := cal.Props.Get("NAME"); p != nil {
		doc.Name = p.Value
	} else if p := cal.Props.Get(ical.PropSummary); p != nil {
		doc.Name = p.Value
	}

	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		ev, perr := parseVEvent(comp)
		if perr != nil {
			slog.Warn("skipping unparsable event", "uid", ev.UID, "err", perr)
			continue
		}
		doc.Events = append(doc.Events, ev)
	}

	return doc, nil
}

func parseVEvent(comp *ical.Component) (RawEvent, error) {
	var ev RawEvent

	if p := comp.Props.Get(ical.PropUID); p != nil {
		ev.UID = p.Value
	}
	if p := comp.Props.Get(ical.PropSummary); p != nil {
		ev.Summary = p.Value
	}
	if p := comp.Props.Get(ical.PropDescription); p != nil {
		ev.Description = p.Value
	}
	if p := comp.Props.Get(ical.PropLocation); p != nil {
		ev.Location = p.Value
	}

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return ev, errors.New("missing DTSTART")
	}
	start, allDay, err := parseInstant(startProp)
	if err != nil {
		return ev, fmt.Errorf("DTSTART: %w", err)
	}
	ev.Start = start
	ev.AllDay = allDay

	if endProp := comp.Props.Get(ical.PropDateTimeEnd); endProp != nil {
		end, _, err := parseInstant(endProp)
		if err != nil {
			return ev, fmt.Errorf("DTEND: %w", err)
		}
		ev.End = end
	} else if allDay {
		ev.End = shiftInstant(start, 24*time.Hour)
	} else {
		ev.End = shiftInstant(start, defaultEventDuration)
	}

	if p := comp.Props.Get(ical.PropRecurrenceRule); p != nil {
		ev.RRule = p.Value
	}
	for _, p := range comp.Props[ical.PropExceptionDates] {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			ex, _, err := parseInstantValue(part, p.Params.Get(ical.ParamTimezoneID))
			if err != nil {
				continue
			}
			ev.ExDates = append(ev.ExDates, ex)
		}
	}

	return ev, nil
}

// parseInstant classifies a DTSTART/DTEND property into one of the three
// instant variants: a literal Z marker means UTC, a TZID parameter means a
// named zone, anything else is floating. VALUE=DATE (or a bare date) is a
// floating midnight and flags the event all-day.
func parseInstant(p *ical.Prop) (domain.Instant, bool, error) {
	if strings.EqualFold(p.Params.Get(ical.ParamValue), string(ical.ValueDate)) {
		return parseInstantValue(p.Value, "")
	}
	return parseInstantValue(p.Value, p.Params.Get(ical.ParamTimezoneID))
}

func parseInstantValue(v, zoneID string) (domain.Instant, bool, error) {
	v = strings.TrimSpace(v)

	if !strings.Contains(v, "T") {
		t, err := time.Parse("20060102", v)
		if err != nil {
			return nil, false, err
		}
		return domain.FloatingInstant{Wall: domain.WallOf(t)}, true, nil
	}

	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		if err != nil {
			return nil, false, err
		}
		return domain.UTCInstant{Wall: domain.WallOf(t)}, false, nil
	}

	t, err := time.Parse("20060102T150405", v)
	if err != nil {
		return nil, false, err
	}
	if zoneID != "" {
		return domain.ZonedInstant{Wall: domain.WallOf(t), ZoneID: zoneID}, false, nil
	}
	return domain.FloatingInstant{Wall: domain.WallOf(t)}, false, nil
}

// shiftInstant moves an instant's wall clock forward by d, preserving the
// variant.
func shiftInstant(in domain.Instant, d time.Duration) domain.Instant {
	w := domain.WallOf(in.WallClock().In(time.UTC).Add(d))
	switch v := in.(type) {
	case domain.UTCInstant:
		return domain.UTCInstant{Wall: w}
	case domain.ZonedInstant:
		return domain.ZonedInstant{Wall: w, ZoneID: v.ZoneID}
	default:
		return domain.FloatingInstant{Wall: w}
	}
}
