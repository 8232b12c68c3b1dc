package domain

import "time"

// EventKind is the semantic type derived from a calendar entry's free text.
// The string value doubles as the display label.
type EventKind string

const (
	KindGame       EventKind = "Game"
	KindPractice   EventKind = "Practice"
	KindTournament EventKind = "Tournament"
	KindScrimmage  EventKind = "Scrimmage"
	KindGeneric    EventKind = "Event"
)

// Platform identifies the third-party system a team calendar comes from.
type Platform string

const (
	PlatformSportsEngine Platform = "sportsengine"
	PlatformTeamSnap     Platform = "teamsnap"
	PlatformPlaymetrics  Platform = "playmetrics"
	PlatformGameChanger  Platform = "gamechanger"
)

var platformNames = map[Platform]string{
	PlatformSportsEngine: "SportsEngine",
	PlatformTeamSnap:     "TeamSnap",
	PlatformPlaymetrics:  "Playmetrics",
	PlatformGameChanger:  "GameChanger",
}

var platformColors = map[Platform]string{
	PlatformSportsEngine: "#2563EB",
	PlatformTeamSnap:     "#F97316",
	PlatformPlaymetrics:  "#16A34A",
	PlatformGameChanger:  "#DC2626",
}

func (p Platform) Valid() bool {
	_, ok := platformNames[p]
	return ok
}

// DisplayName returns the platform's human-readable brand name.
func (p Platform) DisplayName() string {
	if n, ok := platformNames[p]; ok {
		return n
	}
	return string(p)
}

// DefaultColor returns the accent color used for events from this platform
// when the caller supplies none.
func (p Platform) DefaultColor() string {
	if c, ok := platformColors[p]; ok {
		return c
	}
	return "#6B7280"
}

// Event is the canonical, persisted form of one calendar occurrence.
// StartTime and EndTime are always absolute UTC instants; floating times
// never reach this type.
type Event struct {
	ID             int64
	Title          string
	Description    string
	StartTime      time.Time
	EndTime        time.Time
	Location       string
	Sport          string
	Color          string
	Platform       Platform
	PlatformColor  string
	ProfileID      *string
	PlatformTeamID string
	CreatedAt      time.Time
}

// EventKey identifies one logical occurrence. Two events sharing a key are
// duplicates of each other within a sync batch.
type EventKey struct {
	Platform       Platform
	PlatformTeamID string
	Start          int64
	End            int64
}

func (e *Event) Key() EventKey {
	return EventKey{
		Platform:       e.Platform,
		PlatformTeamID: e.PlatformTeamID,
		Start:          e.StartTime.Unix(),
		End:            e.EndTime.Unix(),
	}
}
