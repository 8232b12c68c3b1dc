package ics

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/huddlehq/huddle/internal/domain"
)

// Patterns used to guess a team name out of free text when the document
// carries no explicit calendar name.
var (
	nameBeforeVs    = regexp.MustCompile(`(?i)^(.+?)\s+vs\.?\s`)
	nameBeforeVenue = regexp.MustCompile(`(?i)^(.+?)\s+(?:field|court|gym)\b`)
	nameNoise       = regexp.MustCompile(`(?i)calendar|schedule`)
)

// DeriveTeamName picks a display name for the synced team. The fallback
// chain: explicit calendar name property, document-level name, a guess from
// the first event's summary or location, and finally a name synthesized
// from the feed URL. The result is never empty.
func DeriveTeamName(doc *Document, feedURL string, platform domain.Platform) string {
	if name := cleanTeamName(doc.CalendarName); name != "" {
		return name
	}
	if name := cleanTeamName(doc.Name); name != "" {
		return name
	}
	if len(doc.Events) > 0 {
		first := doc.Events[0]
		if m := nameBeforeVs.FindStringSubmatch(first.Summary); m != nil {
			if name := cleanTeamName(m[1]); name != "" {
				return name
			}
		}
		if m := nameBeforeVenue.FindStringSubmatch(first.Location); m != nil {
			if name := cleanTeamName(m[1]); name != "" {
				return name
			}
		}
	}
	return platform.DisplayName() + " Team " + feedSlug(feedURL)
}

// cleanTeamName strips the literal words "calendar" and "schedule" and
// surrounding whitespace from a candidate name.
func cleanTeamName(name string) string {
	name = nameNoise.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// feedSlug returns the last path segment of the feed URL, without an .ics
// suffix, as a stand-in team identifier.
func feedSlug(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Path == "" {
		return "feed"
	}
	seg := strings.Trim(u.Path, "/")
	if i := strings.LastIndex(seg, "/"); i >= 0 {
		seg = seg[i+1:]
	}
	seg = strings.TrimSuffix(seg, ".ics")
	if seg == "" {
		return "feed"
	}
	return seg
}
