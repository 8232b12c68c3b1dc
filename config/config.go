package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	Port            string
	DatabasePath    string
	DefaultTimezone *time.Location
	FetchTimeout    time.Duration
	ResyncCron      string
	AuthToken       string
	CalDAVURL       string
	CalDAVUsername  string
	CalDAVPassword  string
}

func Load() (*Config, error) {
	port := os.Getenv("SYNCD_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("SYNCD_DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/huddle.db"
	}

	tzName := os.Getenv("SYNCD_DEFAULT_TIMEZONE")
	if tzName == "" {
		tzName = "UTC"
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid SYNCD_DEFAULT_TIMEZONE: %w", err)
	}

	fetchTimeout := 15 * time.Second
	if v := os.Getenv("SYNCD_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SYNCD_FETCH_TIMEOUT: %w", err)
		}
		fetchTimeout = d
	}

	resyncCron := os.Getenv("SYNCD_RESYNC_CRON")
	if resyncCron == "" {
		resyncCron = "0 */6 * * *"
	}

	return &Config{
		Port:            port,
		DatabasePath:    dbPath,
		DefaultTimezone: tz,
		FetchTimeout:    fetchTimeout,
		ResyncCron:      resyncCron,
		AuthToken:       os.Getenv("SYNCD_AUTH_TOKEN"),
		CalDAVURL:       os.Getenv("SYNCD_CALDAV_URL"),
		CalDAVUsername:  os.Getenv("SYNCD_CALDAV_USERNAME"),
		CalDAVPassword:  os.Getenv("SYNCD_CALDAV_PASSWORD"),
	}, nil
}
