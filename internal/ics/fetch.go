package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/huddlehq/huddle/internal/clients/caldav"
)

const DefaultFetchTimeout = 15 * time.Second

// caldavWindow bounds how far around now a CalDAV-backed feed is queried.
const (
	caldavLookback  = 30 * 24 * time.Hour
	caldavHorizonMo = 12
)

// FetchError describes a feed endpoint that answered but did not yield a
// usable calendar.
type FetchError struct {
	Status int
	Reason string
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("feed returned %d %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("feed unusable: %s", e.Reason)
}

// Fetcher resolves a calendar feed reference to raw ICS text. Plain
// https/webcal references are fetched with a bounded-timeout GET; caldav
// references are delegated to the CalDAV client when one is configured.
type Fetcher struct {
	client *http.Client
	dav    *caldav.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// SetCalDAV enables caldav:// feed references.
func (f *Fetcher) SetCalDAV(c *caldav.Client) {
	f.dav = c
}

// NormalizeFeedURL rewrites webcal references to https and validates the
// scheme. The webcal scheme is a delivery-method hint, not a protocol: the
// bytes come over plain HTTPS either way.
func NormalizeFeedURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid feed url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "webcal":
		u.Scheme = "https"
	case "http", "https", "caldav":
	default:
		return "", fmt.Errorf("unsupported feed scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("feed url has no host")
	}
	return u.String(), nil
}

// Fetch retrieves the raw calendar document for the given feed reference.
// Any transport failure or non-2xx response is a *FetchError and fatal for
// the current sync attempt; retrying is the caller's business on a future
// invocation.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (string, error) {
	normalized, err := NormalizeFeedURL(feedURL)
	if err != nil {
		return "", &FetchError{Reason: err.Error()}
	}

	if strings.HasPrefix(normalized, "caldav://") {
		return f.fetchCalDAV(ctx, normalized)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalized, nil)
	if err != nil {
		return "", &FetchError{Reason: err.Error()}
	}
	req.Header.Set("Accept", "text/calendar")
	req.Header.Set("Cache-Control", "no-cache")

	slog.Info("fetching feed", "url", RedactURL(normalized))

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{Status: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{Reason: err.Error()}
	}

	slog.Info("fetched feed", "url", RedactURL(normalized), "bytes", len(body))
	return string(body), nil
}

func (f *Fetcher) fetchCalDAV(ctx context.Context, ref string) (string, error) {
	if f.dav == nil || !f.dav.IsConfigured() {
		return "", &FetchError{Reason: "caldav feed source not configured"}
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", &FetchError{Reason: err.Error()}
	}

	now := time.Now()
	from := now.Add(-caldavLookback)
	to := now.AddDate(0, caldavHorizonMo, 0)

	raw, err := f.dav.FetchCalendar(ctx, u.Path, from, to)
	if err != nil {
		return "", &FetchError{Reason: err.Error()}
	}
	return raw, nil
}

// RedactURL trims a feed URL down to its host for logging. Feed URLs often
// embed per-user tokens in the path or query.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "(unparsable feed url)"
	}
	return u.Scheme + "://" + u.Host + "/…"
}
