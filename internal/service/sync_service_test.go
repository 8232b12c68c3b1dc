package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle/internal/domain"
	"github.com/huddlehq/huddle/internal/ics"
)

const feedFixture = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//SportsEngine//Calendar//EN\r\n" +
	"X-WR-CALNAME:Thunder U12\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:ev-1\r\n" +
	"SUMMARY:U12 Girls vs Thunderbolts\r\n" +
	"LOCATION:Riverside Park\r\n" +
	"DTSTART:20250615T180000Z\r\n" +
	"DTEND:20250615T200000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:ev-2\r\n" +
	"SUMMARY:Weekly Practice\r\n" +
	"DTSTART:20250617T170000\r\n" +
	"DTEND:20250617T183000\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:ev-2-dup\r\n" +
	"SUMMARY:Weekly Practice\r\n" +
	"DTSTART:20250617T170000\r\n" +
	"DTEND:20250617T183000\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func newSyncFixture(t *testing.T, handler http.HandlerFunc) (*SyncService, *httptest.Server, string) {
	t.Helper()
	store := newTestStorage(t)
	profileID := seedProfile(t, store, "America/Chicago")

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tz := NewTimezoneResolver(store, time.UTC)
	svc := NewSyncService(store, ics.NewFetcher(time.Second), tz)
	return svc, srv, profileID
}

func serveFixture(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/calendar")
	w.Write([]byte(feedFixture))
}

func TestSyncHappyPath(t *testing.T) {
	svc, srv, profileID := newSyncFixture(t, serveFixture)

	req := SyncRequest{
		FeedURL:        srv.URL + "/team.ics",
		Platform:       domain.PlatformSportsEngine,
		PlatformTeamID: "12345",
		ProfileID:      &profileID,
		Sport:          "soccer",
	}

	res, err := svc.Sync(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Thunder U12", res.TeamName)
	assert.Equal(t, 2, res.EventCount, "duplicate practice collapses")
	assert.Equal(t, 1, res.Dropped)

	team, err := svc.store.GetTeam(domain.PlatformSportsEngine, "12345")
	require.NoError(t, err)
	require.NotNil(t, team)
	assert.Equal(t, domain.SyncSuccess, team.SyncStatus)
	assert.Equal(t, "Thunder U12", team.Name)
	require.NotNil(t, team.ProfileID)
	assert.Equal(t, profileID, *team.ProfileID)
	assert.NotNil(t, team.LastSynced)

	events, err := svc.store.ListTeamEvents(domain.PlatformSportsEngine, "12345", profileID)
	require.NoError(t, err)
	require.Len(t, events, 2)

	game := events[0]
	assert.Equal(t, "Game vs Thunderbolts", game.Title)
	assert.Equal(t, "Riverside Park", game.Location)
	assert.True(t, game.StartTime.Equal(time.Date(2025, time.June, 15, 18, 0, 0, 0, time.UTC)))

	// floating 17:00 read in the profile user's America/Chicago (CDT, UTC-5)
	practice := events[1]
	assert.Equal(t, "Practice", practice.Title)
	assert.True(t, practice.StartTime.Equal(time.Date(2025, time.June, 17, 22, 0, 0, 0, time.UTC)))
}

func TestSyncIsIdempotent(t *testing.T) {
	svc, srv, profileID := newSyncFixture(t, serveFixture)

	req := SyncRequest{
		FeedURL:        srv.URL + "/team.ics",
		Platform:       domain.PlatformSportsEngine,
		PlatformTeamID: "12345",
		ProfileID:      &profileID,
	}

	first, err := svc.Sync(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Sync(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.EventCount, second.EventCount)

	events, err := svc.store.ListTeamEvents(domain.PlatformSportsEngine, "12345", profileID)
	require.NoError(t, err)
	assert.Len(t, events, first.EventCount, "re-sync replaces, never accumulates")
}

func TestSyncRegistrationWithoutProfile(t *testing.T) {
	svc, srv, _ := newSyncFixture(t, serveFixture)

	req := SyncRequest{
		FeedURL:        srv.URL + "/team.ics",
		Platform:       domain.PlatformSportsEngine,
		PlatformTeamID: "12345",
	}

	res, err := svc.Sync(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Thunder U12", res.TeamName)
	assert.Zero(t, res.EventCount, "registration learns the name, writes no events")

	team, err := svc.store.GetTeam(domain.PlatformSportsEngine, "12345")
	require.NoError(t, err)
	require.NotNil(t, team)
	assert.Equal(t, domain.SyncSuccess, team.SyncStatus)
	assert.Nil(t, team.ProfileID)
}

func TestSyncFetchFailureRecordsErrorState(t *testing.T) {
	calls := 0
	svc, srv, profileID := newSyncFixture(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			serveFixture(w, r)
			return
		}
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	req := SyncRequest{
		FeedURL:        srv.URL + "/team.ics",
		Platform:       domain.PlatformSportsEngine,
		PlatformTeamID: "12345",
		ProfileID:      &profileID,
	}

	first, err := svc.Sync(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Sync(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch")

	team, gerr := svc.store.GetTeam(domain.PlatformSportsEngine, "12345")
	require.NoError(t, gerr)
	require.NotNil(t, team)
	assert.Equal(t, domain.SyncError, team.SyncStatus)
	assert.Equal(t, "Thunder U12", team.Name, "a failed re-sync keeps the learned name")
	assert.NotNil(t, team.LastSynced)

	events, lerr := svc.store.ListTeamEvents(domain.PlatformSportsEngine, "12345", profileID)
	require.NoError(t, lerr)
	assert.Len(t, events, first.EventCount, "a failed fetch leaves stored events alone")
}

func TestSyncParseFailureRecordsErrorState(t *testing.T) {
	svc, srv, profileID := newSyncFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>definitely not a calendar</html>"))
	})

	req := SyncRequest{
		FeedURL:        srv.URL + "/team.ics",
		Platform:       domain.PlatformSportsEngine,
		PlatformTeamID: "12345",
		ProfileID:      &profileID,
	}

	_, err := svc.Sync(context.Background(), req)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse"))

	team, gerr := svc.store.GetTeam(domain.PlatformSportsEngine, "12345")
	require.NoError(t, gerr)
	require.NotNil(t, team)
	assert.Equal(t, domain.SyncError, team.SyncStatus)
}

func TestSyncValidation(t *testing.T) {
	svc, srv, _ := newSyncFixture(t, serveFixture)

	tests := []struct {
		name string
		req  SyncRequest
	}{
		{name: "missing feed url", req: SyncRequest{Platform: domain.PlatformSportsEngine, PlatformTeamID: "1"}},
		{name: "missing team id", req: SyncRequest{FeedURL: srv.URL, Platform: domain.PlatformSportsEngine}},
		{name: "unknown platform", req: SyncRequest{FeedURL: srv.URL, Platform: "myspace", PlatformTeamID: "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Sync(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}
