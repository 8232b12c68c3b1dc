package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/huddlehq/huddle/internal/domain"
	"github.com/huddlehq/huddle/internal/ics"
	"github.com/huddlehq/huddle/internal/storage"
)

// SyncRequest carries everything one sync invocation needs. No stage
// re-fetches context on its own; the request is threaded through the whole
// pipeline.
type SyncRequest struct {
	FeedURL        string
	Platform       domain.Platform
	PlatformTeamID string
	// ProfileID is nil on the initial registration call, before the user
	// has assigned a profile. Registration only learns the team name and
	// writes no events.
	ProfileID *string
	Sport     string
	Color     string
}

// SyncResult is what the invocation contract reports back.
type SyncResult struct {
	TeamName   string
	EventCount int
	Dropped    int
}

var ErrInvalidRequest = errors.New("invalid sync request")

// SyncService runs the ingestion pipeline: fetch, parse, expand, resolve,
// classify, dedupe, replace. One call is one sequential unit of work; the
// only shared state is the database, and the replace step serializes there.
type SyncService struct {
	store   *storage.Storage
	fetcher *ics.Fetcher
	tz      *TimezoneResolver
}

func NewSyncService(store *storage.Storage, fetcher *ics.Fetcher, tz *TimezoneResolver) *SyncService {
	return &SyncService{store: store, fetcher: fetcher, tz: tz}
}

func (s *SyncService) validate(req SyncRequest) error {
	if req.FeedURL == "" {
		return fmt.Errorf("%w: feed url is required", ErrInvalidRequest)
	}
	if req.PlatformTeamID == "" {
		return fmt.Errorf("%w: team id is required", ErrInvalidRequest)
	}
	if !req.Platform.Valid() {
		return fmt.Errorf("%w: unknown platform %q", ErrInvalidRequest, req.Platform)
	}
	return nil
}

// Sync runs one sync attempt to a terminal state. The team's sync status
// enters pending first and ends as success or error, with last_synced
// updated either way. Fetch, parse and persistence failures are fatal to
// the attempt and returned to the caller; timezone and classification
// troubles degrade locally and never surface here.
func (s *SyncService) Sync(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	log := slog.With(
		"sync_id", uuid.NewString(),
		"platform", req.Platform,
		"team", req.PlatformTeamID,
		"feed", ics.RedactURL(req.FeedURL),
	)

	if err := s.store.MarkTeamPending(req.Platform, req.PlatformTeamID, req.FeedURL); err != nil {
		return nil, fmt.Errorf("mark pending: %w", err)
	}

	fail := func(stage string, err error) error {
		log.Error("sync failed", "stage", stage, "err", err)
		if ferr := s.store.FinishTeamSync(req.Platform, req.PlatformTeamID, "", nil, domain.SyncError, time.Now()); ferr != nil {
			log.Error("could not record error state", "err", ferr)
		}
		return fmt.Errorf("%s: %w", stage, err)
	}

	raw, err := s.fetcher.Fetch(ctx, req.FeedURL)
	if err != nil {
		return nil, fail("fetch", err)
	}

	doc, err := ics.Parse(raw)
	if err != nil {
		return nil, fail("parse", err)
	}

	teamName := ics.DeriveTeamName(doc, req.FeedURL, req.Platform)
	result := &SyncResult{TeamName: teamName}

	if req.ProfileID != nil {
		expanded := ics.Expand(doc.Events, time.Now().UTC())
		batch := s.canonicalize(expanded, req)

		deduped, dropped := Dedupe(batch)
		result.Dropped = dropped
		if dropped > 0 {
			log.Info("dropped duplicate events", "count", dropped)
		}

		if err := s.store.ReplaceTeamEvents(req.Platform, req.PlatformTeamID, *req.ProfileID, deduped); err != nil {
			return nil, fail("persist", err)
		}
		result.EventCount = len(deduped)
	}

	if err := s.store.FinishTeamSync(req.Platform, req.PlatformTeamID, teamName, req.ProfileID, domain.SyncSuccess, time.Now()); err != nil {
		return nil, fail("finish", err)
	}

	log.Info("sync complete", "team_name", teamName, "events", result.EventCount)
	return result, nil
}

// canonicalize resolves every raw event to absolute UTC times and applies
// classification. Inverted or zero-length ranges are repaired to an hour;
// nothing here is allowed to fail the batch.
func (s *SyncService) canonicalize(events []ics.RawEvent, req SyncRequest) []domain.Event {
	loc := s.tz.LocationFor(req.ProfileID)

	color := req.Color
	if color == "" {
		color = req.Platform.DefaultColor()
	}

	batch := make([]domain.Event, 0, len(events))
	for _, ev := range events {
		cls := Classify(ev.Summary, ev.Description)

		start := s.tz.Resolve(ev.Start, loc)
		end := s.tz.Resolve(ev.End, loc)
		if !end.After(start) {
			end = start.Add(time.Hour)
		}

		batch = append(batch, domain.Event{
			Title:          cls.Title,
			Description:    cls.Description,
			Location:       ev.Location,
			StartTime:      start,
			EndTime:        end,
			Sport:          req.Sport,
			Color:          color,
			Platform:       req.Platform,
			PlatformColor:  req.Platform.DefaultColor(),
			ProfileID:      req.ProfileID,
			PlatformTeamID: req.PlatformTeamID,
		})
	}
	return batch
}
