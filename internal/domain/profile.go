package domain

import "time"

// User is an account holder. Timezone is the IANA zone name from the user's
// settings, or empty when never configured.
type User struct {
	ID        string
	Name      string
	Timezone  string
	CreatedAt time.Time
}

// Profile is a child profile owned by a user. Events synced for a profile
// inherit the owning user's timezone preference when the feed carries
// floating times.
type Profile struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
}
