package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle/config"
	"github.com/huddlehq/huddle/internal/domain"
	"github.com/huddlehq/huddle/internal/ics"
	"github.com/huddlehq/huddle/internal/service"
	"github.com/huddlehq/huddle/internal/storage"
)

const feedFixture = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//SportsEngine//Calendar//EN\r\n" +
	"X-WR-CALNAME:Thunder U12\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:ev-1\r\n" +
	"SUMMARY:U12 Girls vs Thunderbolts\r\n" +
	"DTSTART:20250615T180000Z\r\n" +
	"DTEND:20250615T200000Z\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

type fixture struct {
	router    *gin.Engine
	feedURL   string
	profileID string
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	user := &domain.User{Name: "Dana", Timezone: "America/Chicago"}
	require.NoError(t, store.CreateUser(user))
	profile := &domain.Profile{UserID: user.ID, Name: "Sam"}
	require.NoError(t, store.CreateProfile(profile))

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte(feedFixture))
	}))
	t.Cleanup(feed.Close)

	tz := service.NewTimezoneResolver(store, cfg.DefaultTimezone)
	svc := service.NewSyncService(store, ics.NewFetcher(time.Second), tz)
	h := NewSyncHandler(svc, store)

	return &fixture{
		router:    NewRouter(cfg, h),
		feedURL:   feed.URL + "/team.ics",
		profileID: profile.ID,
	}
}

func testConfig() *config.Config {
	return &config.Config{DefaultTimezone: time.UTC}
}

func postSync(f *fixture, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestSyncEndpoint(t *testing.T) {
	f := newFixture(t, testConfig())

	body := fmt.Sprintf(`{"icsUrl": %q, "teamId": "12345", "profileId": %q}`, f.feedURL, f.profileID)
	w := postSync(f, body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success    bool   `json:"success"`
		Message    string `json:"message"`
		EventCount int    `json:"eventCount"`
		TeamName   string `json:"teamName"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.EventCount)
	assert.Equal(t, "Thunder U12", resp.TeamName)
	assert.Equal(t, "Synced 1 events for Thunder U12", resp.Message)
}

func TestSyncEndpointRegistration(t *testing.T) {
	f := newFixture(t, testConfig())

	body := fmt.Sprintf(`{"icsUrl": %q, "teamId": "12345", "profileId": null}`, f.feedURL)
	w := postSync(f, body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success    bool   `json:"success"`
		Message    string `json:"message"`
		EventCount int    `json:"eventCount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Zero(t, resp.EventCount)
	assert.Equal(t, "Registered team Thunder U12", resp.Message)
}

func TestSyncEndpointBadJSON(t *testing.T) {
	f := newFixture(t, testConfig())

	w := postSync(f, `{"icsUrl": `, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestSyncEndpointFetchFailure(t *testing.T) {
	f := newFixture(t, testConfig())

	body := fmt.Sprintf(`{"icsUrl": "http://192.0.2.1/x.ics", "teamId": "12345", "profileId": %q}`, f.profileID)
	w := postSync(f, body, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "calendar sync failed", resp.Error)
	assert.NotEmpty(t, resp.Details)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sync", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Body.String())
}

func TestAuthToken(t *testing.T) {
	cfg := testConfig()
	cfg.AuthToken = "sekrit"
	f := newFixture(t, cfg)

	body := fmt.Sprintf(`{"icsUrl": %q, "teamId": "12345", "profileId": null}`, f.feedURL)

	w := postSync(f, body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	h := http.Header{}
	h.Set("Authorization", "Bearer wrong")
	w = postSync(f, body, h)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	h.Set("Authorization", "Bearer sekrit")
	w = postSync(f, body, h)
	assert.Equal(t, http.StatusOK, w.Code)

	// health stays open
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTeamStateEndpoint(t *testing.T) {
	f := newFixture(t, testConfig())

	body := fmt.Sprintf(`{"icsUrl": %q, "teamId": "12345", "profileId": null}`, f.feedURL)
	require.Equal(t, http.StatusOK, postSync(f, body, nil).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/teams/sportsengine/12345", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Platform   string  `json:"platform"`
		TeamID     string  `json:"teamId"`
		TeamName   string  `json:"teamName"`
		SyncStatus string  `json:"syncStatus"`
		LastSynced *string `json:"lastSynced"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "sportsengine", resp.Platform)
	assert.Equal(t, "Thunder U12", resp.TeamName)
	assert.Equal(t, "success", resp.SyncStatus)
	require.NotNil(t, resp.LastSynced)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/teams/sportsengine/absent", nil)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/teams/myspace/12345", nil)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
