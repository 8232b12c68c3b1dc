package service

import "github.com/huddlehq/huddle/internal/domain"

// Dedupe collapses events sharing the same
// (platform, team, start, end) key down to the first-seen one. Input
// order decides the survivor, so the result is deterministic for a given
// batch. The dropped count is returned for observability.
func Dedupe(events []domain.Event) ([]domain.Event, int) {
	seen := make(map[domain.EventKey]struct{}, len(events))
	out := make([]domain.Event, 0, len(events))

	for _, e := range events {
		key := e.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}

	return out, len(events) - len(out)
}
