package domain

import "time"

// SyncStatus is the state of a team's most recent sync attempt. A fresh
// attempt always re-enters at pending and ends in exactly one of the two
// terminal states.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSuccess SyncStatus = "success"
	SyncError   SyncStatus = "error"
)

// Team is the per-(platform, team) sync state record. FeedURL is retained
// from the registration call so later re-syncs can run without the caller
// resupplying it; ProfileID is set once the user assigns a profile.
type Team struct {
	ID             int64
	Platform       Platform
	PlatformTeamID string
	Name           string
	FeedURL        string
	ProfileID      *string
	SyncStatus     SyncStatus
	LastSynced     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
