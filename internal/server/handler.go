package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/huddlehq/huddle/internal/domain"
	"github.com/huddlehq/huddle/internal/service"
	"github.com/huddlehq/huddle/internal/storage"
)

type SyncHandler struct {
	svc   *service.SyncService
	store *storage.Storage
}

func NewSyncHandler(svc *service.SyncService, store *storage.Storage) *SyncHandler {
	return &SyncHandler{svc: svc, store: store}
}

type syncRequestBody struct {
	IcsURL string `json:"icsUrl"`
	TeamID string `json:"teamId"`
	// ProfileID is null on the first registration call.
	ProfileID *string `json:"profileId"`
	Platform  string  `json:"platform"`
	Sport     string  `json:"sport"`
	Color     string  `json:"color"`
}

type syncResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	EventCount int    `json:"eventCount"`
	TeamName   string `json:"teamName"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Sync runs one ingestion for the requested team feed.
func (h *SyncHandler) Sync(c *gin.Context) {
	var body syncRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid json body", Details: err.Error()})
		return
	}

	platform := domain.Platform(strings.ToLower(strings.TrimSpace(body.Platform)))
	if platform == "" {
		platform = domain.PlatformSportsEngine
	}

	profileID := body.ProfileID
	if profileID != nil && strings.TrimSpace(*profileID) == "" {
		profileID = nil
	}

	result, err := h.svc.Sync(c.Request.Context(), service.SyncRequest{
		FeedURL:        body.IcsURL,
		Platform:       platform,
		PlatformTeamID: body.TeamID,
		ProfileID:      profileID,
		Sport:          body.Sport,
		Color:          body.Color,
	})
	if err != nil {
		status := http.StatusInternalServerError
		message := "calendar sync failed"
		if errors.Is(err, service.ErrInvalidRequest) {
			status = http.StatusBadRequest
			message = "invalid sync request"
		}
		c.JSON(status, errorResponse{Error: message, Details: err.Error()})
		return
	}

	message := fmt.Sprintf("Synced %d events for %s", result.EventCount, result.TeamName)
	if profileID == nil {
		message = fmt.Sprintf("Registered team %s", result.TeamName)
	}

	c.JSON(http.StatusOK, syncResponse{
		Success:    true,
		Message:    message,
		EventCount: result.EventCount,
		TeamName:   result.TeamName,
	})
}

type teamStateResponse struct {
	Platform   string  `json:"platform"`
	TeamID     string  `json:"teamId"`
	TeamName   string  `json:"teamName"`
	SyncStatus string  `json:"syncStatus"`
	LastSynced *string `json:"lastSynced"`
}

// TeamState reports the sync state for one registered team; the app polls
// this between the registration call and the profile-assigned full sync.
func (h *SyncHandler) TeamState(c *gin.Context) {
	platform := domain.Platform(strings.ToLower(c.Param("platform")))
	if !platform.Valid() {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "unknown platform"})
		return
	}

	team, err := h.store.GetTeam(platform, c.Param("teamId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "lookup failed", Details: err.Error()})
		return
	}
	if team == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "team not registered"})
		return
	}

	resp := teamStateResponse{
		Platform:   string(team.Platform),
		TeamID:     team.PlatformTeamID,
		TeamName:   team.Name,
		SyncStatus: string(team.SyncStatus),
	}
	if team.LastSynced != nil {
		s := team.LastSynced.UTC().Format("2006-01-02T15:04:05Z")
		resp.LastSynced = &s
	}
	c.JSON(http.StatusOK, resp)
}
