package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/huddlehq/huddle/config"
	"github.com/huddlehq/huddle/internal/service"
	"github.com/huddlehq/huddle/internal/storage"
)

// Scheduler periodically re-runs the sync pipeline for every team that has
// a stored feed URL and an assigned profile. This is the retry path for
// feeds that failed a previous attempt, and the freshness path for the
// rest.
type Scheduler struct {
	cron    *cron.Cron
	cfg     *config.Config
	storage *storage.Storage
	syncSvc *service.SyncService
}

func New(cfg *config.Config, storage *storage.Storage, syncSvc *service.SyncService) *Scheduler {
	c := cron.New(cron.WithLocation(cfg.DefaultTimezone))

	return &Scheduler{
		cron:    c,
		cfg:     cfg,
		storage: storage,
		syncSvc: syncSvc,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.ResyncCron, s.resyncAll); err != nil {
		return fmt.Errorf("add resync job: %w", err)
	}

	s.cron.Start()
	slog.Info("scheduler started", "resync_cron", s.cfg.ResyncCron)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler stopped")
}

// resyncAll sweeps every syncable team. One team's failure is recorded in
// that team's sync state and does not stop the sweep.
func (s *Scheduler) resyncAll() {
	teams, err := s.storage.ListSyncableTeams()
	if err != nil {
		slog.Error("resync sweep aborted", "err", err)
		return
	}

	for _, t := range teams {
		req := service.SyncRequest{
			FeedURL:        t.FeedURL,
			Platform:       t.Platform,
			PlatformTeamID: t.PlatformTeamID,
			ProfileID:      t.ProfileID,
		}
		if _, err := s.syncSvc.Sync(context.Background(), req); err != nil {
			slog.Error("scheduled resync failed", "platform", t.Platform, "team", t.PlatformTeamID, "err", err)
		}
	}

	slog.Info("resync sweep complete", "teams", len(teams))
}
