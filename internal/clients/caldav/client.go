package caldav

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
)

// Client reads VEVENTs out of a CalDAV collection. It is a feed source
// only: events found here are serialized back into a single VCALENDAR
// document and handed to the regular ICS parse path, never written back.
type Client struct {
	baseURL  string
	username string
	password string
	client   *caldav.Client
}

func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
	}
}

// IsConfigured returns true if the client has an endpoint and credentials.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.username != "" && c.password != ""
}

func (c *Client) connect() (*caldav.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{username: c.username, password: c.password},
		Timeout:   30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// FetchCalendar queries the collection at path for VEVENTs within
// [from, to] and flattens the returned objects into one serialized
// VCALENDAR document.
func (c *Client) FetchCalendar(ctx context.Context, path string, from, to time.Time) (string, error) {
	client, err := c.connect()
	if err != nil {
		return "", err
	}

	if path == "" || path == "/" {
		return "", fmt.Errorf("caldav collection path not specified")
	}

	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{
					Name:  "VEVENT",
					Start: from,
					End:   to,
				},
			},
		},
	}

	objects, err := client.QueryCalendar(ctx, path, query)
	if err != nil {
		return "", fmt.Errorf("query calendar: %w", err)
	}

	out := ical.NewCalendar()
	out.Props.SetText(ical.PropVersion, "2.0")
	out.Props.SetText(ical.PropProductID, "-//huddle//syncd//EN")

	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		// Carry the collection's display name through if the source set one.
		if out.Props.Get("X-WR-CALNAME") == nil {
			if p := obj.Data.Props.Get("X-WR-CALNAME"); p != nil {
				out.Props.SetText("X-WR-CALNAME", p.Value)
			}
		}
		for _, comp := range obj.Data.Children {
			if comp.Name == ical.CompEvent {
				out.Children = append(out.Children, comp)
			}
		}
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(out); err != nil {
		return "", fmt.Errorf("serialize calendar: %w", err)
	}
	return buf.String(), nil
}
