package db

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNoActiveProfile = errors.New("no active profile found")

// Config represents the complete runtime configuration loaded from the database.
type Config struct {
	Profile   *Profile
	APIServer *APIServer
	Scheduler *SchedulerSettings
}

// APIAddress returns the API server listen address.
func (c *Config) APIAddress() string {
	if c.APIServer == nil {
		return "0.0.0.0:8080"
	}
	return c.APIServer.Address()
}

// Timezone returns the profile timezone.
func (c *Config) Timezone() string {
	if c.Profile == nil {
		return "UTC"
	}
	return c.Profile.Timezone
}

// Location returns the profile timezone as a *time.Location.
func (c *Config) Location() (*time.Location, error) {
	if c.Profile == nil {
		return time.UTC, nil
	}
	return c.Profile.Location()
}

// ActiveConfig loads the complete configuration for the active profile.
func (db *DB) ActiveConfig(ctx context.Context) (*Config, error) {
	profile, err := db.Profiles().GetActive(ctx)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrNoActiveProfile
		}
		return nil, fmt.Errorf("failed to get active profile: %w", err)
	}

	config := &Config{
		Profile: profile,
	}

	apiServer, err := db.APIServers().Get(ctx, profile.ID)
	if err != nil && !errors.Is(err, ErrAPIServerNotFound) {
		return nil, fmt.Errorf("failed to get API server config: %w", err)
	}
	config.APIServer = apiServer

	settings, err := db.SchedulerSettings().Get(ctx, profile.ID)
	if errors.Is(err, ErrSchedulerSettingsNotFound) {
		settings = db.defaultSchedulerSettings(profile.ID)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get scheduler settings: %w", err)
	}
	config.Scheduler = settings

	return config, nil
}
