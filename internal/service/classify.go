package service

import (
	"regexp"
	"strings"

	"github.com/huddlehq/huddle/internal/domain"
)

// Classification is what the classifier derives from an event's free-text
// summary and description. It never fails: an unrecognizable summary still
// yields the generic kind and a non-empty title.
type Classification struct {
	Kind        domain.EventKind
	Opponent    string
	Title       string
	Description string
}

var (
	reGameWord   = regexp.MustCompile(`(?i)\b(?:game|match)\b`)
	reVsWord     = regexp.MustCompile(`(?i)\b(?:vs\.?|versus)\b`)
	reVsOpponent = regexp.MustCompile(`(?i)\b(?:vs\.?|versus)\s+(.+?)\s*$`)
	reAtGame     = regexp.MustCompile(`(?i)^([^,]+?)\s+at\s+([^,]+)$`)
	reHomeAway   = regexp.MustCompile(`(?i)\((?:home|away)\)\s*(?:vs\.?|versus)\s*(.+)$`)
	rePractice   = regexp.MustCompile(`(?i)\bpractice\b`)
	reTournament = regexp.MustCompile(`(?i)\btournament\b`)
	reScrimmage  = regexp.MustCompile(`(?i)\bscrimmage\b`)
)

// classifyRule pairs a summary predicate with the kind it implies and an
// optional opponent extractor. Rules run in slice order and the first
// match wins; that order is the documented precedence for overlapping
// patterns ("Eagles at Riverside Game" is a game by keyword, and its
// opponent comes from the vs extractor, not the at one).
type classifyRule struct {
	match    *regexp.Regexp
	kind     domain.EventKind
	opponent func(summary string) string
}

var classifyRules = []classifyRule{
	{match: reGameWord, kind: domain.KindGame, opponent: vsOpponent},
	{match: reVsWord, kind: domain.KindGame, opponent: vsOpponent},
	{match: reAtGame, kind: domain.KindGame, opponent: atOpponent},
	{match: reHomeAway, kind: domain.KindGame, opponent: homeAwayOpponent},
	{match: rePractice, kind: domain.KindPractice},
	{match: reTournament, kind: domain.KindTournament},
	{match: reScrimmage, kind: domain.KindScrimmage},
}

func vsOpponent(summary string) string {
	if m := reVsOpponent.FindStringSubmatch(summary); m != nil {
		return cleanOpponent(m[1])
	}
	return ""
}

func atOpponent(summary string) string {
	if m := reAtGame.FindStringSubmatch(summary); m != nil {
		return cleanOpponent(m[2])
	}
	return ""
}

func homeAwayOpponent(summary string) string {
	if m := reHomeAway.FindStringSubmatch(summary); m != nil {
		return cleanOpponent(m[1])
	}
	return ""
}

var reVenueMarker = regexp.MustCompile(`(?i)\s*\((?:home|away)\)\s*`)

func cleanOpponent(s string) string {
	s = reVenueMarker.ReplaceAllString(s, " ")
	return strings.Trim(strings.TrimSpace(s), ".,;:-")
}

// Classify derives kind, opponent and synthesized title/description from
// an event's summary and description.
func Classify(summary, description string) Classification {
	s := strings.TrimSpace(summary)

	kind := domain.KindGeneric
	opponent := ""
	for _, r := range classifyRules {
		if r.match.MatchString(s) {
			kind = r.kind
			if r.opponent != nil {
				opponent = r.opponent(s)
			}
			break
		}
	}

	title := string(kind)
	if kind == domain.KindGame && opponent != "" {
		title = "Game vs " + opponent
	}

	return Classification{
		Kind:        kind,
		Opponent:    opponent,
		Title:       title,
		Description: synthesizeDescription(s, description, opponent),
	}
}

// synthesizeDescription keeps the original summary visible in the stored
// description and makes sure an extracted opponent is mentioned.
func synthesizeDescription(summary, description, opponent string) string {
	desc := strings.TrimSpace(description)

	if summary != "" && !containsFold(desc, summary) {
		if desc == "" {
			desc = summary
		} else {
			desc = summary + "\n" + desc
		}
	}

	if opponent != "" && !containsFold(desc, opponent) {
		if desc == "" {
			desc = "Opponent: " + opponent
		} else {
			desc += "\nOpponent: " + opponent
		}
	}

	return desc
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
