package service

import (
	"log/slog"
	"time"

	"github.com/huddlehq/huddle/internal/domain"
	"github.com/huddlehq/huddle/internal/storage"
)

// TimezoneResolver turns parsed instants into absolute UTC times. The only
// interesting case is the floating one: a zone-less wall clock is read in
// the owning profile's user's preferred zone, found through storage.
type TimezoneResolver struct {
	store      *storage.Storage
	defaultLoc *time.Location
}

func NewTimezoneResolver(store *storage.Storage, defaultLoc *time.Location) *TimezoneResolver {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &TimezoneResolver{store: store, defaultLoc: defaultLoc}
}

// LocationFor resolves the zone floating times are interpreted in for the
// given profile. A missing profile, an unset preference, or a failed
// lookup all degrade to the default zone rather than failing the sync.
func (r *TimezoneResolver) LocationFor(profileID *string) *time.Location {
	if profileID == nil {
		return r.defaultLoc
	}
	tz, err := r.store.ProfileTimezone(*profileID)
	if err != nil {
		slog.Warn("profile timezone lookup failed, using default", "profile_id", *profileID, "err", err)
		return r.defaultLoc
	}
	if tz == "" {
		return r.defaultLoc
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		slog.Warn("unknown user timezone, using default", "timezone", tz)
		return r.defaultLoc
	}
	return loc
}

// Resolve converts one instant to an absolute UTC time. floatingLoc is the
// zone floating values are read in (from LocationFor). A zoned instant
// naming a zone the host cannot load degrades to UTC with a warning.
func (r *TimezoneResolver) Resolve(in domain.Instant, floatingLoc *time.Location) time.Time {
	switch v := in.(type) {
	case domain.UTCInstant:
		return v.In(time.UTC)
	case domain.ZonedInstant:
		loc, err := time.LoadLocation(v.ZoneID)
		if err != nil {
			slog.Warn("unknown TZID, reading as UTC", "tzid", v.ZoneID)
			loc = time.UTC
		}
		return v.In(loc).UTC()
	case domain.FloatingInstant:
		if floatingLoc == nil {
			floatingLoc = r.defaultLoc
		}
		return v.In(floatingLoc).UTC()
	default:
		return time.Time{}
	}
}
