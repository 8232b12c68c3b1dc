package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/huddlehq/huddle/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	if dir := filepath.Dir(dbPath); dir != "." && !strings.HasPrefix(dbPath, ":") && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			timezone TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_user_id ON profiles(user_id)`,
		`CREATE TABLE IF NOT EXISTS teams (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			platform TEXT NOT NULL,
			platform_team_id TEXT NOT NULL,
			name TEXT DEFAULT '',
			feed_url TEXT DEFAULT '',
			profile_id TEXT,
			sync_status TEXT NOT NULL DEFAULT 'pending',
			last_synced DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(platform, platform_team_id),
			FOREIGN KEY (profile_id) REFERENCES profiles(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_teams_status ON teams(sync_status)`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT DEFAULT '',
			location TEXT DEFAULT '',
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			sport TEXT DEFAULT '',
			color TEXT DEFAULT '',
			platform TEXT NOT NULL,
			platform_color TEXT DEFAULT '',
			profile_id TEXT,
			platform_team_id TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (profile_id) REFERENCES profiles(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_triple ON events(platform, platform_team_id, profile_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_time)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// WithTx runs fn inside a transaction, rolling back on error.
func (s *Storage) WithTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// === Users and profiles ===

func (s *Storage) CreateUser(u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO users (id, name, timezone) VALUES (?, ?, ?)`,
		u.ID, u.Name, u.Timezone,
	)
	if err != nil {
		return err
	}
	u.CreatedAt = time.Now()
	return nil
}

func (s *Storage) SetUserTimezone(userID, timezone string) error {
	_, err := s.db.Exec(`UPDATE users SET timezone = ? WHERE id = ?`, timezone, userID)
	return err
}

func (s *Storage) CreateProfile(p *domain.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO profiles (id, user_id, name) VALUES (?, ?, ?)`,
		p.ID, p.UserID, p.Name,
	)
	if err != nil {
		return err
	}
	p.CreatedAt = time.Now()
	return nil
}

// ProfileTimezone walks the profile → user → settings chain and returns
// the owning user's timezone preference. Empty string means unset.
func (s *Storage) ProfileTimezone(profileID string) (string, error) {
	var tz string
	err := s.db.QueryRow(
		`SELECT u.timezone FROM profiles p JOIN users u ON u.id = p.user_id WHERE p.id = ?`,
		profileID,
	).Scan(&tz)
	if err != nil {
		return "", err
	}
	return tz, nil
}

// === Teams ===

// MarkTeamPending registers the team if needed and re-enters its sync
// state machine at pending. The feed URL is remembered so the background
// re-sync can run without the caller.
func (s *Storage) MarkTeamPending(platform domain.Platform, teamID, feedURL string) error {
	_, err := s.db.Exec(`
		INSERT INTO teams (platform, platform_team_id, feed_url, sync_status, updated_at)
		VALUES (?, ?, ?, 'pending', CURRENT_TIMESTAMP)
		ON CONFLICT(platform, platform_team_id) DO UPDATE SET
			sync_status = 'pending',
			feed_url = CASE WHEN excluded.feed_url != '' THEN excluded.feed_url ELSE feed_url END,
			updated_at = CURRENT_TIMESTAMP
	`, platform, teamID, feedURL)
	return err
}

// FinishTeamSync records the terminal state of a sync attempt. The name
// and profile are only overwritten when non-empty, so a failed re-sync
// does not erase what an earlier successful one learned. last_synced is
// updated on error too; staleness detection depends on it.
func (s *Storage) FinishTeamSync(platform domain.Platform, teamID, name string, profileID *string, status domain.SyncStatus, at time.Time) error {
	var pid string
	if profileID != nil {
		pid = *profileID
	}
	_, err := s.db.Exec(`
		UPDATE teams SET
			name = CASE WHEN ? != '' THEN ? ELSE name END,
			profile_id = CASE WHEN ? != '' THEN ? ELSE profile_id END,
			sync_status = ?,
			last_synced = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE platform = ? AND platform_team_id = ?
	`, name, name, pid, pid, status, at.UTC(), platform, teamID)
	return err
}

func (s *Storage) GetTeam(platform domain.Platform, teamID string) (*domain.Team, error) {
	t := &domain.Team{}
	var profileID sql.NullString
	var lastSynced sql.NullTime
	err := s.db.QueryRow(`
		SELECT id, platform, platform_team_id, name, feed_url, profile_id, sync_status, last_synced, created_at, updated_at
		FROM teams WHERE platform = ? AND platform_team_id = ?
	`, platform, teamID).Scan(
		&t.ID, &t.Platform, &t.PlatformTeamID, &t.Name, &t.FeedURL,
		&profileID, &t.SyncStatus, &lastSynced, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if profileID.Valid {
		t.ProfileID = &profileID.String
	}
	if lastSynced.Valid {
		ts := lastSynced.Time
		t.LastSynced = &ts
	}
	return t, nil
}

// ListSyncableTeams returns teams that have everything a background
// re-sync needs: a stored feed URL and an assigned profile.
func (s *Storage) ListSyncableTeams() ([]*domain.Team, error) {
	rows, err := s.db.Query(`
		SELECT id, platform, platform_team_id, name, feed_url, profile_id, sync_status, last_synced, created_at, updated_at
		FROM teams
		WHERE feed_url != '' AND profile_id IS NOT NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []*domain.Team
	for rows.Next() {
		t := &domain.Team{}
		var profileID sql.NullString
		var lastSynced sql.NullTime
		if err := rows.Scan(
			&t.ID, &t.Platform, &t.PlatformTeamID, &t.Name, &t.FeedURL,
			&profileID, &t.SyncStatus, &lastSynced, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if profileID.Valid {
			t.ProfileID = &profileID.String
		}
		if lastSynced.Valid {
			ts := lastSynced.Time
			t.LastSynced = &ts
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// === Events ===

// ReplaceTeamEvents deletes every stored event for the
// (platform, team, profile) triple and inserts the new batch, all inside
// one transaction. Re-running with the same batch leaves the same rows;
// a failure leaves the previous set intact rather than half a replacement.
func (s *Storage) ReplaceTeamEvents(platform domain.Platform, teamID, profileID string, events []domain.Event) error {
	return s.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`DELETE FROM events WHERE platform = ? AND platform_team_id = ? AND profile_id = ?`,
			platform, teamID, profileID,
		); err != nil {
			return fmt.Errorf("delete events: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO events (title, description, location, start_time, end_time, sport, color, platform, platform_color, profile_id, platform_team_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range events {
			if _, err := stmt.Exec(
				e.Title, e.Description, e.Location,
				e.StartTime.UTC(), e.EndTime.UTC(),
				e.Sport, e.Color, e.Platform, e.PlatformColor,
				profileID, teamID,
			); err != nil {
				return fmt.Errorf("insert event %q: %w", e.Title, err)
			}
		}
		return nil
	})
}

func (s *Storage) ListTeamEvents(platform domain.Platform, teamID, profileID string) ([]*domain.Event, error) {
	rows, err := s.db.Query(`
		SELECT id, title, description, location, start_time, end_time, sport, color, platform, platform_color, profile_id, platform_team_id, created_at
		FROM events
		WHERE platform = ? AND platform_team_id = ? AND profile_id = ?
		ORDER BY start_time, id
	`, platform, teamID, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		e := &domain.Event{}
		var pid sql.NullString
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.Location,
			&e.StartTime, &e.EndTime, &e.Sport, &e.Color,
			&e.Platform, &e.PlatformColor, &pid, &e.PlatformTeamID, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		if pid.Valid {
			e.ProfileID = &pid.String
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
